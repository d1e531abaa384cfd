package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/calls/index"
	getsafe "github.com/w-h-a/calls/util/get_safe"
	"github.com/w-h-a/calls/util/httpclient"
)

type qdrantIndex struct {
	options index.Options
	client  *http.Client
	ready   bool
	mtx     sync.Mutex
}

// PointID maps a call_id onto the stable UUID qdrant requires.
func PointID(callID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("calls:"+callID)).String()
}

func (s *qdrantIndex) Upsert(ctx context.Context, docs []index.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if err := s.ensureCollection(ctx, len(docs[0].Vector)); err != nil {
		return err
	}

	points := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		if len(doc.ID) == 0 {
			return errors.New("document has no id")
		}
		points = append(points, map[string]any{
			"id":     PointID(doc.ID),
			"vector": doc.Vector,
			"payload": map[string]any{
				"call_id":  doc.ID,
				"document": doc.Text,
				"metadata": doc.Metadata,
			},
		})
	}

	req := map[string]any{
		"points": points,
	}

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func (s *qdrantIndex) Query(ctx context.Context, vector []float32, k int, opts ...index.QueryOption) ([]index.Match, error) {
	if k < 1 {
		return nil, nil
	}

	options := index.NewQueryOptions(opts...)

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	if len(options.Filter) > 0 {
		must := make([]map[string]any, 0, len(options.Filter))
		for key, value := range options.Filter {
			must = append(must, map[string]any{
				"key":   "metadata." + key,
				"match": map[string]any{"value": value},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}

	var rsp qdrantEnvelope[[]qdrantPointResult]

	err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &rsp)
	if isNotFound(err) {
		return []index.Match{}, nil
	}
	if err != nil {
		return nil, err
	}

	matches := make([]index.Match, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		payload := point.Payload

		distance := 1 - point.Score
		if distance < 0 {
			distance = 0
		}

		matches = append(matches, index.Match{
			ID:       getsafe.String(payload, "call_id"),
			Text:     getsafe.String(payload, "document"),
			Metadata: getsafe.Map(payload, "metadata"),
			Distance: distance,
		})
	}

	index.SortMatches(matches)

	return matches, nil
}

func (s *qdrantIndex) Count(ctx context.Context) (int, error) {
	var rsp qdrantEnvelope[qdrantCount]

	err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/count", map[string]any{"exact": true}, &rsp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return rsp.Result.Count, nil
}

func (s *qdrantIndex) collectionPath() string {
	return fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))
}

func (s *qdrantIndex) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := strings.TrimSuffix(s.options.Location, "/") + path
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return &statusError{Code: response.StatusCode, Body: string(payload)}
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

// ensureCollection creates the collection on first write, sized to the
// first vector seen.
func (s *qdrantIndex) ensureCollection(ctx context.Context, size int) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.ready {
		return nil
	}

	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		if err := s.createCollection(ctx, size); err != nil {
			return err
		}
	}

	s.ready = true

	return nil
}

func (s *qdrantIndex) collectionExists(ctx context.Context) (bool, error) {
	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(ctx, http.MethodGet, s.collectionPath(), nil, &rsp)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantIndex) createCollection(ctx context.Context, size int) error {
	if size == 0 {
		return errors.New("cannot create qdrant collection for empty vectors")
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": "Cosine",
		},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodPut, s.collectionPath(), req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func NewIndex(opts ...index.Option) index.Index {
	options := index.NewOptions(opts...)

	if len(options.Location) == 0 || len(options.Collection) == 0 {
		panic("missing location or collection for qdrant index")
	}

	return &qdrantIndex{
		options: options,
		client:  httpclient.Or(options.HTTPClient, 15*time.Second),
	}
}
