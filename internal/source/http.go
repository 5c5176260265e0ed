package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// UserAgent is sent with every tile request.
const UserAgent = "quadtiler/0.1"

// HTTPSource fetches tiles from an XYZ url template.
type HTTPSource struct {
	info   Info
	client *http.Client
	log    logrus.FieldLogger
}

// NewHTTP creates an HTTP source. A nil client gets a 30s timeout client.
func NewHTTP(info Info, client *http.Client, log logrus.FieldLogger) (*HTTPSource, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{
		info:   info,
		client: client,
		log:    log.WithField("component", "http-source"),
	}, nil
}

// Info returns the source description.
func (s *HTTPSource) Info() Info {
	return s.info
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, id quadtree.TileID) ([]byte, error) {
	if !s.info.InRange(id) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, id)
	}
	start := time.Now()

	url := s.info.TileURL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status code %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTile, id)
	}
	// vector tiles are handed out decompressed whatever the server sent
	if s.info.Format == PBF {
		if body, err = gunzip(body); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", url, err)
		}
	}

	s.log.Debugf("tile(z:%d, x:%d, y:%d), %dms , %.2f kb, %s", id.Level, id.X, id.Y,
		time.Since(start).Milliseconds(), float32(len(body))/1024.0, url)
	return body, nil
}
