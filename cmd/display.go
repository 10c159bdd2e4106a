package cmd

import (
	"strconv"

	"github.com/creativeprojects/feedme/syncer"
	"github.com/pterm/pterm"
)

func resultsTable(results []syncer.Result) pterm.TableData {
	data := pterm.TableData{
		{"Feed", "Folder", "Format", "State", "New", "Skipped", "Failed", "Error"},
	}
	for _, result := range results {
		var format, errorMessage string
		if result.State == syncer.StateCompleted {
			format = result.Format.String()
		}
		if result.Err != nil {
			errorMessage = result.Err.Error()
		}
		folder := result.Folder
		if folder == "" {
			folder = result.Feed.Folder.String()
		}
		data = append(data, []string{
			result.Feed.URL,
			folder,
			format,
			result.State.String(),
			strconv.Itoa(result.Delivered),
			strconv.Itoa(result.Skipped),
			strconv.Itoa(result.Failed),
			errorMessage,
		})
	}
	return data
}

func displayResults(results []syncer.Result) error {
	return pterm.DefaultTable.WithHasHeader().WithData(resultsTable(results)).Render()
}

// progress shows a progress bar over the feeds, unless disabled
type progress struct {
	pbar *pterm.ProgressbarPrinter
}

func newProgress(total int, enabled bool) *progress {
	if !enabled || total == 0 {
		return &progress{}
	}
	pbar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle("Feeds").WithRemoveWhenDone(true).Start()
	if err != nil {
		return &progress{}
	}
	return &progress{pbar: pbar}
}

func (p *progress) done(result syncer.Result) {
	if p.pbar == nil {
		return
	}
	p.pbar.UpdateTitle(result.Feed.URL)
	p.pbar.Increment()
}

func (p *progress) stop() {
	if p.pbar == nil {
		return
	}
	_, _ = p.pbar.Stop()
}
