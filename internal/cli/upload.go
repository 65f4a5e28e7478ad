package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/planeissues/internal/render"
	"github.com/nhle/planeissues/internal/source"
	"github.com/nhle/planeissues/internal/source/plane"
)

// downloadClient fetches --url payloads; tests point it at httptest servers.
var downloadClient = http.DefaultClient

// payload is a file ready to be attached.
type payload struct {
	name        string
	contentType string
	data        []byte
}

func newUploadFileCmd(a *app) *cobra.Command {
	var (
		fromURL string
		name    string
	)

	cmd := &cobra.Command{
		Use:   "upload-file ISSUE [PATH]",
		Short: "Attach a local file or a downloaded one to an issue",
		Args:  cobra.RangeArgs(1, 2),
		Example: `  planeissues upload-file WEB-42 ./screenshot.png
  planeissues upload-file 42 --url https://example.com/report.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filePath string
			if len(args) == 2 {
				filePath = args[1]
			}
			if (filePath == "") == (fromURL == "") {
				return fail("Upload Failed", &source.ValidationError{
					Phase:   source.PhaseValidate,
					Message: "give either a file path or --url, not both",
				})
			}

			tracker, err := a.connect()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			issue, err := tracker.GetIssueBySequenceID(ctx, args[0])
			if err != nil {
				return fail("Upload Failed", err)
			}

			var file *payload
			if filePath != "" {
				file, err = readFile(filePath)
			} else {
				file, err = download(ctx, fromURL)
			}
			if err != nil {
				return fail("Upload Failed", err)
			}
			if name != "" {
				file.name = name
			}
			if file.contentType == "" {
				file.contentType = plane.ContentTypeFor(file.name, file.data)
			}

			fmt.Fprintln(cmd.ErrOrStderr(), render.Progress(
				"Uploading",
				fmt.Sprintf("%s (%s) to %s", file.name, render.FormatFileSize(int64(len(file.data))), issue.FormattedID),
			))

			att, err := tracker.UploadAttachment(ctx, issue.ID, file.data, file.name, file.contentType)
			if err != nil {
				return fail("Upload Failed", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.UploadResult(issue, att, tracker))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromURL, "url", "", "Download the file from this URL instead of reading PATH")
	cmd.Flags().StringVar(&name, "name", "", "File name to store the attachment under")

	return cmd
}

// readLimited reads at most one byte past the upload limit so oversized
// files are still rejected by the uploader without being read in full.
func readLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, plane.MaxUploadSize+1))
}

func readFile(filePath string) (*payload, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, &source.ValidationError{
			Phase:   source.PhaseValidate,
			Message: fmt.Sprintf("cannot read %s", filePath),
			Err:     err,
		}
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	return &payload{name: filepath.Base(filePath), data: data}, nil
}

// download fetches rawURL. The content type reported by the server is kept
// when it is more specific than a generic binary type.
func download(ctx context.Context, rawURL string) (*payload, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &source.ValidationError{
			Phase:   source.PhaseValidate,
			Message: fmt.Sprintf("%q is not an http(s) URL", rawURL),
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("downloading %s: HTTP %d", rawURL, resp.StatusCode)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", rawURL, err)
	}

	name := "attachment"
	if base := path.Base(parsed.Path); base != "." && base != "/" {
		if unescaped, err := url.PathUnescape(base); err == nil {
			base = unescaped
		}
		name = base
	}

	file := &payload{name: name, data: data}
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil &&
		!strings.EqualFold(mediaType, "application/octet-stream") {
		file.contentType = mediaType
	}
	return file, nil
}
