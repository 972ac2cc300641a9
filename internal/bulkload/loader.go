package bulkload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Load job terminal statuses. Anything else is still in flight.
const (
	StatusCompleted = "LOAD_COMPLETED"
	StatusFailed    = "LOAD_FAILED"
)

// OverallStatus summarizes one load job.
type OverallStatus struct {
	Status             string `json:"status"`
	TotalRecords       int64  `json:"totalRecords"`
	TotalDuplicates    int64  `json:"totalDuplicates"`
	ParsingErrors      int64  `json:"parsingErrors"`
	InsertErrors       int64  `json:"insertErrors"`
	TotalTimeSpent     int64  `json:"totalTimeSpent"`
	FullURI            string `json:"fullUri"`
	RunNumber          int64  `json:"runNumber"`
	RetryNumber        int64  `json:"retryNumber"`
	DatatypeMismatches int64  `json:"datatypeMismatchErrors"`
}

// LoadErrorEntry is one failed record reported by the loader.
type LoadErrorEntry struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	FileName     string `json:"fileName"`
	RecordNum    int64  `json:"recordNum"`
}

// LoadStatus is the payload of one status poll.
type LoadStatus struct {
	OverallStatus OverallStatus `json:"overallStatus"`
	Errors        struct {
		ErrorLogs []LoadErrorEntry `json:"errorLogs"`
	} `json:"errors"`
}

// Terminal reports whether the job has finished, successfully or not.
func (s LoadStatus) Terminal() bool {
	return s.OverallStatus.Status == StatusCompleted || s.OverallStatus.Status == StatusFailed
}

// LoaderAPI submits load jobs and polls their status.
type LoaderAPI interface {
	Load(ctx context.Context, objectKey string) (string, error)
	LoadStatus(ctx context.Context, loadID string) (LoadStatus, error)
}

// LoaderConfig locates the loader endpoint and the source bucket it reads
// from.
type LoaderConfig struct {
	// Endpoint is the loader REST base, like "https://host:8182".
	Endpoint   string
	Bucket     string
	Region     string
	IAMRoleARN string
}

// LoaderClient talks to a Neptune-style loader REST endpoint.
type LoaderClient struct {
	cfg    LoaderConfig
	base   *url.URL
	client *http.Client
}

// NewLoaderClient validates the endpoint and builds a client. httpClient may
// be nil for the default.
func NewLoaderClient(cfg LoaderConfig, httpClient *http.Client) (*LoaderClient, error) {
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("loader endpoint %q: %w", cfg.Endpoint, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LoaderClient{cfg: cfg, base: base, client: httpClient}, nil
}

// Load submits one staged object for loading and returns the job id.
func (c *LoaderClient) Load(ctx context.Context, objectKey string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"source":       fmt.Sprintf("s3://%s/%s", c.cfg.Bucket, objectKey),
		"format":       "csv",
		"region":       c.cfg.Region,
		"iamRoleArn":   c.cfg.IAMRoleARN,
		"failOnError":  false,
		"parallelism":  "HIGH",
		"queueRequest": true,

		"updateSingleCardinalityProperties": true,
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Payload struct {
			LoadID string `json:"loadId"`
		} `json:"payload"`
	}
	if err := c.do(ctx, http.MethodPost, c.base.JoinPath("loader"), body, &parsed); err != nil {
		return "", fmt.Errorf("submitting load for %s: %w", objectKey, err)
	}
	if parsed.Payload.LoadID == "" {
		return "", fmt.Errorf("load submission for %s returned no loadId", objectKey)
	}
	return parsed.Payload.LoadID, nil
}

// LoadStatus polls one job, requesting its recent errors too.
func (c *LoaderClient) LoadStatus(ctx context.Context, loadID string) (LoadStatus, error) {
	u := c.base.JoinPath("loader", loadID)
	q := u.Query()
	q.Set("errors", "true")
	q.Set("errorsPerPage", "30")
	u.RawQuery = q.Encode()

	var parsed struct {
		Payload LoadStatus `json:"payload"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &parsed); err != nil {
		return LoadStatus{}, fmt.Errorf("polling load %s: %w", loadID, err)
	}
	return parsed.Payload, nil
}

func (c *LoaderClient) do(ctx context.Context, method string, u *url.URL, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loader returned %d: %s", resp.StatusCode, payload)
	}
	return json.Unmarshal(payload, out)
}
