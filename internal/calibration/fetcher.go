package calibration

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"
)

// DefaultPath is where the calibration dataset lives in the working
// directory between download and imatrix generation.
const DefaultPath = "calibration_data.txt"

// Fetcher downloads the calibration dataset used for importance matrix
// generation. A file already present at the target path is reused as a
// cache, which is also why a failed generator run leaves the file behind.
type Fetcher struct {
	client   *resty.Client
	url      string
	progress bool
}

func NewFetcher(url string, progress bool) *Fetcher {
	return &Fetcher{
		client:   resty.New(),
		url:      url,
		progress: progress,
	}
}

// Ensure makes the calibration dataset available at path, downloading it if
// absent, and reports whether an existing file was reused. The download is
// streamed to a temporary name and renamed into place only on success, so an
// aborted transfer never masquerades as a cached dataset.
func (f *Fetcher) Ensure(ctx context.Context, path string) (cached bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return true, nil
	}

	res, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(f.url)
	if err != nil {
		return false, fmt.Errorf("fetching calibration dataset: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if !res.IsSuccess() {
		return false, fmt.Errorf("fetching calibration dataset: unexpected status %d", res.StatusCode())
	}

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", tmp, err)
	}

	var dst io.Writer = out
	if f.progress {
		bar := progressbar.NewOptions64(res.RawResponse.ContentLength,
			progressbar.OptionSetDescription("downloading calibration data"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		dst = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(dst, body); err != nil {
		out.Close()
		os.Remove(tmp)
		return false, fmt.Errorf("downloading calibration dataset: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("moving calibration dataset into place: %w", err)
	}
	return false, nil
}
