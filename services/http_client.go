package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/PlasmaXD/VLDP/crypto"
)

// CollectorClient talks to a collector over HTTP. It carries no
// protocol state; pair it with a client.Base, client.Expand or
// client.Shuffle session.
type CollectorClient struct {
	baseURL string
	client  *http.Client
}

// NewCollectorClient returns a client for the collector at baseURL.
// httpClient may be nil, in which case http.DefaultClient is used.
func NewCollectorClient(baseURL string, httpClient *http.Client) *CollectorClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CollectorClient{baseURL: baseURL, client: httpClient}
}

// GenerateRandomness runs the client's side of the GenRand round and
// returns the server's raw response message.
func (c *CollectorClient) GenerateRandomness(ctx context.Context, msg []byte) ([]byte, error) {
	return c.postMessage(ctx, c.baseURL+"/genrand", msg)
}

// Randomize submits a randomization message and returns the collector's
// verdict. For the Expand variant the epoch must match the session's
// epoch counter; Base and Shuffle callers pass RandomizeNoEpoch.
func (c *CollectorClient) Randomize(ctx context.Context, msg []byte, epoch uint64) (*VerifyResult, error) {
	endpoint := c.baseURL + "/randomize"
	if epoch != RandomizeNoEpoch {
		endpoint += "?epoch=" + strconv.FormatUint(epoch, 10)
	}
	body, err := c.postMessage(ctx, endpoint, msg)
	if err != nil {
		return nil, err
	}
	result := new(VerifyResult)
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("decode verify result: %w", err)
	}
	return result, nil
}

// RandomizeNoEpoch marks a randomization request without an epoch
// parameter.
const RandomizeNoEpoch = ^uint64(0)

// Tally fetches the collector's current histogram and counters.
func (c *CollectorClient) Tally(ctx context.Context) (*TallyResult, error) {
	body, err := c.get(ctx, c.baseURL+"/tally")
	if err != nil {
		return nil, err
	}
	result := new(TallyResult)
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("decode tally: %w", err)
	}
	return result, nil
}

// EvalPoints fetches the Shuffle round's evaluation points.
func (c *CollectorClient) EvalPoints(ctx context.Context) ([]crypto.EvalPoint, error) {
	body, err := c.get(ctx, c.baseURL+"/points")
	if err != nil {
		return nil, err
	}
	var encoded []string
	if err := json.Unmarshal(body, &encoded); err != nil {
		return nil, fmt.Errorf("decode evaluation points: %w", err)
	}
	points := make([]crypto.EvalPoint, len(encoded))
	for i, e := range encoded {
		raw, err := hex.DecodeString(e)
		if err != nil {
			return nil, fmt.Errorf("decode evaluation point %d: %w", i, err)
		}
		if len(raw) != crypto.EvalPointSize {
			return nil, fmt.Errorf("evaluation point %d: unexpected size %d", i, len(raw))
		}
		points[i] = crypto.EvalPoint(raw)
	}
	return points, nil
}

func (c *CollectorClient) postMessage(ctx context.Context, endpoint string, msg []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(msg))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.do(req)
}

func (c *CollectorClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *CollectorClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
