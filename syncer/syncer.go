package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/creativeprojects/feedme/feed"
	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type State int

const (
	StatePending State = iota
	StateCompleted
	StateFeedFailed
)

func (s State) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateFeedFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Result is the outcome of the synchronization of one feed
type Result struct {
	Feed feed.Feed
	// Folder is the native name of the target folder, empty when not resolved
	Folder    string
	State     State
	Format    feed.Format
	Delivered int
	Skipped   int
	Failed    int
	Err       error
}

// Fetcher downloads the content of a feed
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

type Config struct {
	// Workers is the number of feeds downloaded in parallel
	Workers  int
	Fetcher  Fetcher
	Assigner *feed.Assigner
	Composer *Composer
	// Flags in IMAP form set on each delivered message
	Flags  []string
	Logger lib.Logger
	// Progress is called from the delivery loop after each feed is processed
	Progress func(result Result)
}

// Syncer delivers the new items of the feeds into the store
type Syncer struct {
	backend   storage.Backend
	fetcher   Fetcher
	extractor *feed.Extractor
	assigner  *feed.Assigner
	composer  *Composer
	workers   int
	flags     []string
	progress  func(result Result)
	log       lib.Logger
}

func New(backend storage.Backend, config Config) (*Syncer, error) {
	if backend == nil {
		return nil, errors.New("missing mail store")
	}
	logger := lib.OrNoLog(config.Logger)
	if config.Workers < 1 {
		config.Workers = DefaultWorkers
	}
	if config.Fetcher == nil {
		config.Fetcher = feed.NewFetcher(feed.FetcherConfig{}, logger)
	}
	if config.Assigner == nil {
		config.Assigner = feed.NewAssigner(feed.DefaultNamespace, feed.FallbackContent, logger)
	}
	if config.Composer == nil {
		composer, err := NewComposer(DefaultFrom, DefaultTo, config.Assigner)
		if err != nil {
			return nil, err
		}
		config.Composer = composer
	}
	return &Syncer{
		backend:   backend,
		fetcher:   config.Fetcher,
		extractor: feed.NewExtractor(logger),
		assigner:  config.Assigner,
		composer:  config.Composer,
		workers:   config.Workers,
		flags:     config.Flags,
		progress:  config.Progress,
		log:       logger,
	}, nil
}

// download is a feed downloaded and parsed by a worker
type download struct {
	index   int
	format  feed.Format
	entries []feed.Entry
	err     error
}

// Run synchronizes all the feeds in one session. The error is only returned when the session cannot be opened:
// the outcome of each feed is in its Result.
func (s *Syncer) Run(ctx context.Context, feeds []feed.Feed) ([]Result, error) {
	session := storage.NewSession(s.backend, s.log)
	if err := session.Login(ctx); err != nil {
		return nil, fmt.Errorf("cannot open mail store session: %w", err)
	}
	defer func() {
		if err := session.Logout(); err != nil {
			s.log.Warnf("error while closing mail store session: %s", err)
		}
	}()

	results := make([]Result, len(feeds))
	for i, source := range feeds {
		results[i] = Result{Feed: source}
	}

	folders := NewFolders(session, s.log)
	gate := NewDedupGate(session, s.log)

	// mailbox commands are only sent from this goroutine
	for download := range s.load(ctx, feeds) {
		if err := ctx.Err(); err != nil {
			continue
		}
		s.deliver(ctx, session, folders, gate, download, &results[download.index])
		if s.progress != nil {
			s.progress(results[download.index])
		}
	}

	for i := range results {
		if results[i].State == StatePending {
			results[i].State = StateFeedFailed
			results[i].Err = ctx.Err()
			if results[i].Err == nil {
				results[i].Err = errors.New("feed not processed")
			}
		}
	}
	return results, nil
}

// load downloads and parses the feeds in the background, a few at a time
func (s *Syncer) load(ctx context.Context, feeds []feed.Feed) <-chan download {
	output := make(chan download)
	go func() {
		defer close(output)
		group := new(errgroup.Group)
		group.SetLimit(s.workers)
		for i, source := range feeds {
			if ctx.Err() != nil {
				break
			}
			index, source := i, source
			group.Go(func() error {
				result := s.loadFeed(ctx, index, source)
				select {
				case output <- result:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = group.Wait()
	}()
	return output
}

func (s *Syncer) loadFeed(ctx context.Context, index int, source feed.Feed) download {
	s.log.Debugf("downloading feed %s", source)
	data, err := s.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return download{index: index, err: err}
	}
	doc, err := feed.Parse(data)
	if err != nil {
		return download{index: index, err: err}
	}
	format, entries := s.extractor.Extract(doc)
	return download{
		index:   index,
		format:  format,
		entries: entries,
	}
}

func (s *Syncer) deliver(ctx context.Context, session *storage.Session, folders *Folders, gate *DedupGate, download download, result *Result) {
	if download.err != nil {
		s.log.Warnf("feed %s: %s", result.Feed, download.err)
		result.State = StateFeedFailed
		result.Err = download.err
		return
	}
	result.Format = download.format
	items := feed.Identify(download.entries, s.assigner, s.log)
	if len(items) == 0 {
		s.log.Infof("feed %s: no item", result.Feed)
		result.State = StateCompleted
		return
	}

	folder, err := folders.Ensure(result.Feed.Folder)
	if err != nil {
		s.log.Errorf("feed %s: %s", result.Feed, err)
		result.State = StateFeedFailed
		result.Err = err
		return
	}
	result.Folder = folder.Name
	defer gate.Close()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			result.State = StateFeedFailed
			result.Err = err
			return
		}
		delivered, err := s.deliverItem(session, gate, folder, item)
		if err != nil {
			s.log.Errorf("feed %s: item %s: %s", result.Feed, item, err)
			result.Failed++
			continue
		}
		if delivered {
			result.Delivered++
		} else {
			result.Skipped++
		}
	}
	s.log.Infof("feed %s: %d new item(s) delivered into %q, %d already there, %d failed",
		result.Feed, result.Delivered, folder.Name, result.Skipped, result.Failed)
	result.State = StateCompleted
}

func (s *Syncer) deliverItem(session *storage.Session, gate *DedupGate, folder mailbox.Info, item feed.Item) (bool, error) {
	exists, err := gate.Exists(folder, item.CanonicalID)
	if err != nil {
		return false, err
	}
	if exists {
		s.log.Debugf("item %s already in %q", item, folder.Name)
		return false, nil
	}
	message, err := s.composer.Compose(item)
	if err != nil {
		return false, err
	}
	props := mailbox.MessageProperties{
		Flags:        s.flags,
		InternalDate: item.Timestamp,
		Size:         uint32(len(message)),
	}
	_, err = session.PutMessage(folder, props, bytes.NewReader(message))
	if err != nil {
		return false, &lib.MailboxError{Op: "append", Mailbox: folder.Name, Err: err}
	}
	s.log.Debugf("item %s delivered into %q", item, folder.Name)
	return true, nil
}
