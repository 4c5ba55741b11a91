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

package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/visey-io/visey/base/log"
	"github.com/visey-io/visey/config"
	"github.com/visey-io/visey/logics"
	"github.com/visey-io/visey/storage/cache"
	"github.com/visey-io/visey/storage/data"
)

// CatalogClient supplies candidate resources on a cache miss.
type CatalogClient interface {
	GetResources(ctx context.Context) ([]data.Resource, error)
}

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config        *config.Config
	DataClient    data.Database
	ResourceCache *cache.ResourceCache
	Catalog       CatalogClient
	Recommender   *logics.Recommender
	WebService    *restful.WebService
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer() {
	// register restful APIs
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	// register swagger
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	http.Handle("/metrics", promhttp.Handler())

	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.Config.Server.HttpHost, s.Config.Server.HttpPort)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.Config.Server.HttpHost, s.Config.Server.HttpPort), nil)))
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	if req.Request.URL.Path != "/api/health" {
		log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
			zap.Int("status_code", resp.StatusCode()))
	}
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)

	ws.Route(ws.GET("/recommend/{user-id}").To(s.getRecommend).
		Doc("Get recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned recommendations").DataType("integer")).
		Param(ws.QueryParameter("industry", "industry of the user").DataType("string")).
		Param(ws.QueryParameter("stage", "growth stage of the user").DataType("string")).
		Param(ws.QueryParameter("team_size", "team size of the user").DataType("string")).
		Param(ws.QueryParameter("funding", "funding status of the user").DataType("string")).
		Param(ws.QueryParameter("location", "location of the user").DataType("string")).
		Writes([]logics.Recommendation{}))
	ws.Route(ws.POST("/feedback").To(s.insertFeedback).
		Doc("Insert feedback.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"feedback"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads([]data.Feedback{}).
		Writes(Success{}))
	ws.Route(ws.GET("/feedback/{user-id}").To(s.getFeedback).
		Doc("Get feedback by user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"feedback"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Writes([]data.Feedback{}))
	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Check service health.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(Health{}))
}

// Success is the payload of a write operation.
type Success struct {
	RowAffected int
}

// Health is the payload of the health check.
type Health struct {
	Status string `json:"status"`
}

func (s *RestServer) getRecommend(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	userId, err := ParseId(request, "user-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.TopN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	profile := data.UserProfile{
		UserId:   userId,
		Industry: request.QueryParameter("industry"),
		Stage:    request.QueryParameter("stage"),
		TeamSize: request.QueryParameter("team_size"),
		Funding:  request.QueryParameter("funding"),
		Location: request.QueryParameter("location"),
	}
	resources, err := s.getResources(request)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	recommendations := s.Recommender.Recommend(request.Request.Context(), profile, resources, n)
	GetRecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, recommendations)
}

// getResources serves candidates from cache and falls back to the catalog
// client, warming the cache on the way back.
func (s *RestServer) getResources(request *restful.Request) ([]data.Resource, error) {
	ctx := request.Request.Context()
	if s.ResourceCache != nil {
		if resources, hit := s.ResourceCache.GetResources(ctx); hit {
			return resources, nil
		}
	}
	if s.Catalog == nil {
		return nil, nil
	}
	resources, err := s.Catalog.GetResources(ctx)
	if err != nil {
		return nil, err
	}
	if s.ResourceCache != nil {
		if err = s.ResourceCache.SetResources(ctx, resources); err != nil {
			log.Logger().Warn("failed to warm resource cache", zap.Error(err))
		}
	}
	return resources, nil
}

func (s *RestServer) insertFeedback(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	var feedback []data.Feedback
	if err := request.ReadEntity(&feedback); err != nil {
		BadRequest(response, err)
		return
	}
	for _, f := range feedback {
		if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
			BadRequest(response, fmt.Errorf("rating out of range: %d", *f.Rating))
			return
		}
	}
	for _, f := range feedback {
		if err := s.DataClient.UpsertFeedback(request.Request.Context(), f); err != nil {
			InternalServerError(response, err)
			return
		}
	}
	Ok(response, Success{RowAffected: len(feedback)})
}

func (s *RestServer) getFeedback(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	userId, err := ParseId(request, "user-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	feedback, err := s.DataClient.GetUserFeedback(request.Request.Context(), userId)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, feedback)
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	if err := s.DataClient.Ping(); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Health{Status: "ok"})
}

// ParseId parses an int64 identifier from a path parameter.
func ParseId(request *restful.Request, name string) (int64, error) {
	return strconv.ParseInt(request.PathParameter(name), 10, 64)
}

// ParseInt parses an integer from a query parameter with a fallback when the
// parameter is absent.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns an internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.Logger().Error("unauthorized", zap.String("X-API-Key", apikey))
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
	return false
}
