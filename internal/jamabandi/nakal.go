package jamabandi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/landrecords-in/jamabandi/internal/models"
	apperrors "github.com/landrecords-in/jamabandi/pkg/errors"
)

// nakalPage retrieves the final Nakal_khewat document, optionally dumps the
// raw HTML to disk, and parses the identification fields out of it.
func (c *Client) nakalPage(ctx context.Context, key models.RecordKey) (*nakalFields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nakalURL(), nil)
	if err != nil {
		return nil, apperrors.FetchError("building portal request", err)
	}
	c.decorate(req)
	req.Header.Set("Referer", c.recordURL())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrPortalUnreachable.WithInternal(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, apperrors.FetchError(
			fmt.Sprintf("portal returned status %d for the nakal page", res.StatusCode), nil)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperrors.ErrPortalUnreachable.WithInternal(err)
	}

	if c.htmlDir != "" {
		if err := c.dumpHTML(key, body); err != nil {
			c.log.Warn("could not write nakal html", zap.Error(err))
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.ErrPortalChanged.WithInternal(err)
	}

	return parseNakalFields(doc)
}

func (c *Client) dumpHTML(key models.RecordKey, body []byte) error {
	if err := os.MkdirAll(c.htmlDir, 0o755); err != nil {
		return err
	}

	name := fmt.Sprintf("%s_%s_%s_%s.html",
		key.DistrictName, key.TehsilName, key.VillageName,
		strings.ReplaceAll(key.KhasraNo, "/", "-"))

	return os.WriteFile(filepath.Join(c.htmlDir, name), body, 0o644)
}
