package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// Client stores course content in two collections: one for lesson
// chunks, one for embedded course titles used by semantic name
// resolution.
type Client struct {
	baseURL          string
	chunksCollection string
	titlesCollection string
	httpClient       *http.Client

	ensureMu     sync.Mutex
	ensuredSizes map[string]int
}

func New(baseURL, chunksCollection, titlesCollection string) *Client {
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		chunksCollection: chunksCollection,
		titlesCollection: titlesCollection,
		httpClient:       &http.Client{Timeout: 60 * time.Second},
		ensuredSizes:     make(map[string]int),
	}
}

func (c *Client) IndexCourseChunks(ctx context.Context, chunks []domain.CourseChunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, c.chunksCollection, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]any{
			"course_title": chunk.CourseTitle,
			"chunk_index":  chunk.ChunkIndex,
			"text":         chunk.Text,
		}
		if chunk.LessonNumber != nil {
			payload["lesson_number"] = *chunk.LessonNumber
		}
		points = append(points, point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload,
		})
	}

	return c.upsertPoints(ctx, c.chunksCollection, map[string]any{"points": points})
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	courseTitle string,
	lessonNumber *int,
) (domain.SearchResults, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var must []map[string]any
	if courseTitle != "" {
		must = append(must, map[string]any{
			"key":   "course_title",
			"match": map[string]any{"value": courseTitle},
		})
	}
	if lessonNumber != nil {
		must = append(must, map[string]any{
			"key":   "lesson_number",
			"match": map[string]any{"value": *lessonNumber},
		})
	}
	if len(must) > 0 {
		reqBody["filter"] = map[string]any{"must": must}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, c.chunksCollection, "/points/search", reqBody, &searchResp, "search"); err != nil {
		return domain.SearchResults{}, err
	}

	results := domain.SearchResults{
		Documents: make([]string, 0, len(searchResp.Result)),
		Metadata:  make([]domain.ChunkRef, 0, len(searchResp.Result)),
	}
	for _, r := range searchResp.Result {
		ref := domain.ChunkRef{
			CourseTitle: getStringPayload(r.Payload, "course_title"),
			ChunkIndex:  getIntPayload(r.Payload, "chunk_index"),
			Score:       r.Score,
		}
		if raw, ok := r.Payload["lesson_number"]; ok {
			if number, ok := toInt(raw); ok {
				ref.LessonNumber = &number
			}
		}
		results.Documents = append(results.Documents, getStringPayload(r.Payload, "text"))
		results.Metadata = append(results.Metadata, ref)
	}
	return results, nil
}

// IndexCourseTitle uses a title-derived point ID, so re-indexing the
// same course overwrites instead of duplicating.
func (c *Client) IndexCourseTitle(ctx context.Context, title string, vector []float32) error {
	if len(vector) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx, c.titlesCollection, len(vector)); err != nil {
		return err
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":     uuid.NewSHA1(uuid.NameSpaceOID, []byte(title)).String(),
				"vector": vector,
				"payload": map[string]any{
					"title": title,
				},
			},
		},
	}
	return c.upsertPoints(ctx, c.titlesCollection, body)
}

func (c *Client) NearestCourseTitle(ctx context.Context, queryVector []float32) (string, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        1,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, c.titlesCollection, "/points/search", reqBody, &searchResp, "resolve title"); err != nil {
		return "", err
	}
	if len(searchResp.Result) == 0 {
		return "", fmt.Errorf("no course titles indexed")
	}
	title := getStringPayload(searchResp.Result[0].Payload, "title")
	if title == "" {
		return "", fmt.Errorf("course title payload missing")
	}
	return title, nil
}

func (c *Client) upsertPoints(ctx context.Context, collection string, reqBody map[string]any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, collection, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	url := fmt.Sprintf("%s/collections/%s%s", c.baseURL, collection, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
		}
		return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensuredSizes[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(collection, vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(collection, vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(collection string, vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredSizes[collection] = vectorSize
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	if n, ok := toInt(payload[key]); ok {
		return n
	}
	return 0
}

func toInt(v any) (int, bool) {
	switch typed := v.(type) {
	case float64:
		return int(typed), true
	case int:
		return typed, true
	case int64:
		return int(typed), true
	default:
		return 0, false
	}
}
