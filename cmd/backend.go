package cmd

import (
	"fmt"
	"net"
	"strconv"

	"github.com/creativeprojects/feedme/cfg"
	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/storage"
	"github.com/creativeprojects/feedme/storage/local"
	"github.com/creativeprojects/feedme/storage/mdir"
	"github.com/creativeprojects/feedme/storage/mem"
	"github.com/creativeprojects/feedme/storage/remote"
)

// verify interface
var (
	_ storage.Backend = &remote.Imap{}
	_ storage.Backend = &local.BoltStore{}
	_ storage.Backend = &mdir.Maildir{}
	_ storage.Backend = &mem.Backend{}
)

func newBackend(config cfg.Mailbox, logger lib.Logger) (storage.Backend, error) {
	switch config.Type {
	case cfg.IMAP:
		return remote.NewImap(remote.Config{
			ServerURL:           net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
			Username:            config.User,
			Password:            config.Password,
			NoTLS:               !config.UseTLS,
			SkipTLSVerification: config.SkipTLSVerification,
			Auth:                config.Auth,
			Compress:            config.Compress,
			DialTimeout:         config.Timeout,
			Timeout:             config.Timeout,
			DebugLogger:         logger,
		})
	case cfg.LOCAL:
		return local.NewBoltStoreWithLogger(config.File, logger), nil
	case cfg.MAILDIR:
		return mdir.NewWithLogger(config.Root, logger)
	case cfg.MEMORY:
		return mem.NewWithLogger(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mailbox type %q", config.Type)
	}
}
