package paylog

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchSink ships log entries to an OpenSearch index, for
// deployments that want durable, queryable flow-transition history
// rather than (or in addition to) console output.
//
// Grounded on the teacher's infra/opensearch Client + Logger pair,
// narrowed from the teacher's tenant/payment-request log shape down
// to the Entry shape this package emits.
type OpenSearchSink struct {
	client    *opensearch.Client
	index     string
	indexedOK bool
}

// OpenSearchSinkConfig configures an OpenSearchSink.
type OpenSearchSinkConfig struct {
	Addresses          []string
	Username, Password string
	Index              string // defaults to "paymcp-logs"
	InsecureSkipVerify bool
}

// NewOpenSearchSink connects to OpenSearch and ensures the target
// index exists, creating it if necessary.
func NewOpenSearchSink(cfg OpenSearchSinkConfig) (*OpenSearchSink, error) {
	if cfg.Index == "" {
		cfg.Index = "paymcp-logs"
	}

	osCfg := opensearch.Config{
		Addresses: cfg.Addresses,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}
	if cfg.Username != "" {
		osCfg.Username = cfg.Username
		osCfg.Password = cfg.Password
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("paylog: create opensearch client: %w", err)
	}

	sink := &OpenSearchSink{client: client, index: cfg.Index}
	if err := sink.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("paylog: ensure index: %w", err)
	}
	return sink, nil
}

func (s *OpenSearchSink) ensureIndex(ctx context.Context) error {
	existsReq := opensearchapi.IndicesExistsRequest{Index: []string{s.index}}
	res, err := existsReq.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		createReq := opensearchapi.IndicesCreateRequest{Index: s.index}
		createRes, err := createReq.Do(ctx, s.client)
		if err != nil {
			return err
		}
		defer createRes.Body.Close()
	}
	s.indexedOK = true
	return nil
}

// Write indexes a single log entry. Errors are returned to the caller
// (Logger.log runs Write on a goroutine and discards the error, same
// as the teacher's fire-and-forget OpenSearch logging).
func (s *OpenSearchSink) Write(entry Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req := opensearchapi.IndexRequest{
		Index: s.index,
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("paylog: index error: %s", string(body))
	}
	return nil
}
