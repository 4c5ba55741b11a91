// Copyright 2025 visey Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client fetches the catalog from a WordPress site via its REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/juju/errors"
	"github.com/juju/ratelimit"
	"go.uber.org/zap"

	"github.com/visey-io/visey/base/log"
	"github.com/visey-io/visey/config"
	"github.com/visey-io/visey/storage/data"
)

const maxFetchRetries = 4

// WordPressClient paginates published posts from /wp-json/wp/v2/posts and
// maps them to catalog resources. Requests are throttled by a token bucket
// and transient failures are retried with exponential backoff.
type WordPressClient struct {
	config config.WordPressConfig
	client *http.Client
	bucket *ratelimit.Bucket
}

// NewWordPressClient creates a client from configuration.
func NewWordPressClient(cfg config.WordPressConfig) *WordPressClient {
	return &WordPressClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		bucket: ratelimit.NewBucketWithRate(float64(cfg.RateLimit)/60, int64(cfg.RateLimit)),
	}
}

// rendered is WordPress's wrapper around HTML fields.
type rendered struct {
	Rendered string `json:"rendered"`
}

type wpTerm struct {
	Name     string `json:"name"`
	Taxonomy string `json:"taxonomy"`
}

type wpPost struct {
	Id       int64          `json:"id"`
	Link     string         `json:"link"`
	Title    rendered       `json:"title"`
	Excerpt  rendered       `json:"excerpt"`
	Meta     map[string]any `json:"meta"`
	Embedded struct {
		Terms [][]wpTerm `json:"wp:term"`
	} `json:"_embedded"`
}

// GetResources fetches every published post. Pagination stops at the first
// short page.
func (w *WordPressClient) GetResources(ctx context.Context) ([]data.Resource, error) {
	var resources []data.Resource
	for page := 1; ; page++ {
		posts, err := w.fetchPage(ctx, page)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for _, post := range posts {
			resources = append(resources, post.toResource())
		}
		if len(posts) < w.config.BatchSize {
			break
		}
	}
	log.Logger().Info("fetched catalog from WordPress",
		zap.String("base_url", w.config.BaseURL),
		zap.Int("n_resources", len(resources)))
	return resources, nil
}

// fetchPage requests one page of posts. Server errors and transport failures
// are retried, client errors abort immediately. A past-the-end page is
// reported by WordPress as HTTP 400 and treated as an empty page.
func (w *WordPressClient) fetchPage(ctx context.Context, page int) ([]wpPost, error) {
	operation := func() ([]wpPost, error) {
		w.bucket.Wait(1)
		url := fmt.Sprintf("%s/wp-json/wp/v2/posts?_embed=wp:term&per_page=%d&page=%d",
			w.config.BaseURL, w.config.BatchSize, page)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(errors.Trace(err))
		}
		w.authorize(req)
		resp, err := w.client.Do(req)
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Trace(err)
		}
		switch {
		case resp.StatusCode == http.StatusBadRequest:
			return nil, nil
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, errors.Errorf("wordpress: %s", resp.Status)
		case resp.StatusCode != http.StatusOK:
			return nil, backoff.Permanent(errors.Errorf("wordpress: %s", resp.Status))
		}
		var posts []wpPost
		if err = json.Unmarshal(body, &posts); err != nil {
			return nil, backoff.Permanent(errors.Trace(err))
		}
		return posts, nil
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxFetchRetries),
		backoff.WithMaxElapsedTime(5*time.Minute))
}

func (w *WordPressClient) authorize(req *http.Request) {
	switch w.config.AuthType {
	case "basic", "application_password":
		req.SetBasicAuth(w.config.Username, w.config.Password)
	case "jwt":
		req.Header.Set("Authorization", "Bearer "+w.config.Token)
	}
}

func (p wpPost) toResource() data.Resource {
	resource := data.Resource{
		Id:      p.Id,
		Title:   p.Title.Rendered,
		Link:    p.Link,
		Excerpt: p.Excerpt.Rendered,
		Meta:    p.Meta,
	}
	for _, terms := range p.Embedded.Terms {
		for _, term := range terms {
			switch term.Taxonomy {
			case "category":
				resource.Categories = append(resource.Categories, term.Name)
			case "post_tag":
				resource.Tags = append(resource.Tags, term.Name)
			}
		}
	}
	return resource
}
