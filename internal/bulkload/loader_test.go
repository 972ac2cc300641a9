package bulkload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderClientLoad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/loader", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s3://stage/2023/vertex0.csv", body["source"])
		assert.Equal(t, "csv", body["format"])
		assert.Equal(t, "arn:aws:iam::1:role/loader", body["iamRoleArn"])
		assert.Equal(t, "HIGH", body["parallelism"])
		assert.Equal(t, true, body["queueRequest"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"200 OK","payload":{"loadId":"job-1"}}`))
	}))
	defer server.Close()

	client, err := NewLoaderClient(LoaderConfig{
		Endpoint: server.URL, Bucket: "stage", Region: "us-east-1",
		IAMRoleARN: "arn:aws:iam::1:role/loader"}, nil)
	require.NoError(t, err)

	loadID, err := client.Load(context.Background(), "2023/vertex0.csv")
	require.NoError(t, err)
	assert.Equal(t, "job-1", loadID)
}

func TestLoaderClientLoadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/loader/job-1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("errors"))

		_, _ = w.Write([]byte(`{"payload":{
			"overallStatus":{"status":"LOAD_COMPLETED","totalRecords":42,"totalDuplicates":1},
			"errors":{"errorLogs":[{"errorCode":"PARSING_ERROR","recordNum":7}]}}}`))
	}))
	defer server.Close()

	client, err := NewLoaderClient(LoaderConfig{Endpoint: server.URL}, nil)
	require.NoError(t, err)

	status, err := client.LoadStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, status.Terminal())
	assert.Equal(t, int64(42), status.OverallStatus.TotalRecords)
	require.Len(t, status.Errors.ErrorLogs, 1)
	assert.Equal(t, int64(7), status.Errors.ErrorLogs[0].RecordNum)
}

func TestLoaderClientErrors(t *testing.T) {
	t.Run("non-2xx surfaces the body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad source", http.StatusBadRequest)
		}))
		defer server.Close()

		client, err := NewLoaderClient(LoaderConfig{Endpoint: server.URL}, nil)
		require.NoError(t, err)
		_, err = client.Load(context.Background(), "x.csv")
		assert.ErrorContains(t, err, "400")
		assert.ErrorContains(t, err, "bad source")
	})

	t.Run("missing loadId fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"payload":{}}`))
		}))
		defer server.Close()

		client, err := NewLoaderClient(LoaderConfig{Endpoint: server.URL}, nil)
		require.NoError(t, err)
		_, err = client.Load(context.Background(), "x.csv")
		assert.ErrorContains(t, err, "no loadId")
	})
}
