package agent

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anchor/marquise/internal/errorsx"
	"github.com/anchor/marquise/internal/httpx"
)

// HeaderRecords carries the record count of a transmitted batch.
const HeaderRecords = "X-Marquise-Records"

const requestTimeout = 30 * time.Second

// NewIngestClient ships framed batches to the remote store. the remote is a
// black box request/acknowledge endpoint, a successful status acknowledges
// the whole batch.
func NewIngestClient(c *http.Client, host string) *IngestClient {
	return &IngestClient{
		c:    c,
		host: host,
	}
}

type IngestClient struct {
	c    *http.Client
	host string
}

func (t IngestClient) Transmit(ctx context.Context, namespace, stream string, body []byte, records int) (err error) {
	ctx, done := context.WithTimeout(ctx, requestTimeout)
	defer done()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v2/spool/%s/%s", t.host, namespace, stream), bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(HeaderRecords, strconv.Itoa(records))

	resp, err := httpx.AsError(t.c.Do(req))
	defer func() { errorsx.Log(httpx.AutoClose(resp)) }()

	return err
}
