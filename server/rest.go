// Copyright 2026 gorse Project Authors
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
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/movietime/base/log"
	"github.com/gorse-io/movietime/dataset"
	"github.com/gorse-io/movietime/logics"
	"github.com/gorse-io/movietime/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Movie is a catalog movie in responses.
type Movie struct {
	MovieId    int64    `json:"movie_id"`
	Title      string   `json:"title"`
	Genres     []string `json:"genres"`
	ImdbId     string   `json:"imdb_id"`
	TmdbId     int64    `json:"tmdb_id"`
	NumRatings int      `json:"num_ratings"`
	MeanRating float32  `json:"mean_rating"`
}

func NewMovie(movie dataset.CatalogMovie) Movie {
	return Movie{
		MovieId:    movie.MovieId,
		Title:      movie.Title,
		Genres:     movie.Genres,
		ImdbId:     movie.ImdbId,
		TmdbId:     movie.TmdbId,
		NumRatings: movie.NumRatings,
		MeanRating: movie.MeanRating,
	}
}

type ScoredMovie struct {
	Movie
	Score float32 `json:"score"`
}

// RecommendRequest describes a new user by ratings on movie titles and/or movie ids.
type RecommendRequest struct {
	Ratings   map[string]float32 `json:"ratings"`
	Movies    map[int64]float32  `json:"movies"`
	Strategy  string             `json:"strategy"`
	N         int                `json:"n"`
	Neighbors int                `json:"neighbors"`
	Filter    string             `json:"filter"`
}

type RecommendResponse struct {
	Items    []ScoredMovie `json:"items"`
	Warnings []string      `json:"warnings"`
}

type Health struct {
	Ready     bool `json:"ready"`
	NumMovies int  `json:"num_movies"`
	NumUsers  int  `json:"num_users"`
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.Header().Set("X-Request-ID", requestId)
	chain.ProcessFilter(req, resp)
	ResponseTotal.WithLabelValues(strconv.Itoa(resp.StatusCode())).Inc()
	if req.Request.URL.Path != "/api/health" {
		log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("used_time", time.Since(start)))
	}
}

// CreateWebService creates web service.
func (s *Server) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)

	ws.Route(ws.POST("/recommend").To(s.recommend).
		Doc("Recommend movies for a new user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(RecommendRequest{}).
		Writes(RecommendResponse{}))
	ws.Route(ws.GET("/movies").To(s.getMovies).
		Doc("Get catalog movies.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("offset", "offset of returned movies").DataType("int")).
		Param(ws.QueryParameter("n", "number of returned movies").DataType("int")).
		Writes([]Movie{}))
	ws.Route(ws.GET("/movie/{movie-id}").To(s.getMovie).
		Doc("Get a catalog movie.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("movie-id", "identifier of the movie").DataType("integer")).
		Writes(Movie{}))
	ws.Route(ws.GET("/popular").To(s.getPopular).
		Doc("Get movies with the highest mean rating.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("n", "number of returned movies").DataType("int")).
		Param(ws.QueryParameter("genres", "comma separated genres").DataType("string")).
		Writes([]Movie{}))
	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Get health status.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(Health{}))
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

func (s *Server) getMovies(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	offset, err := ParseInt(request, "offset", 0)
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	if offset < 0 || n < 0 {
		BadRequest(response, errors.NotValidf("offset %d and n %d", offset, n))
		return
	}
	movies := s.Recommender.Catalog().Matrix.Movies()
	begin := min(offset, len(movies))
	end := min(begin+n, len(movies))
	Ok(response, lo.Map(movies[begin:end], func(movie dataset.CatalogMovie, _ int) Movie {
		return NewMovie(movie)
	}))
}

func (s *Server) getMovie(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	movieId, err := strconv.ParseInt(request.PathParameter("movie-id"), 10, 64)
	if err != nil {
		BadRequest(response, err)
		return
	}
	matrix := s.Recommender.Catalog().Matrix
	column := matrix.Column(movieId)
	if column < 0 {
		PageNotFound(response, errors.NotFoundf("movie %d", movieId))
		return
	}
	Ok(response, NewMovie(matrix.Movie(column)))
}

func (s *Server) getPopular(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	var genres []string
	if value := request.QueryParameter("genres"); value != "" {
		genres = strings.Split(value, ",")
	}
	popular := logics.Popular(s.Recommender.Catalog().Matrix, n, genres...)
	Ok(response, lo.Map(popular, func(movie dataset.CatalogMovie, _ int) Movie {
		return NewMovie(movie)
	}))
}

func (s *Server) getHealth(_ *restful.Request, response *restful.Response) {
	matrix := s.Recommender.Catalog().Matrix
	Ok(response, Health{
		Ready:     true,
		NumMovies: matrix.CountMovies(),
		NumUsers:  matrix.CountUsers(),
	})
}

func (s *Server) recommend(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	var body RecommendRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	req, err := s.parseRequest(&body)
	if err != nil {
		if dataset.IsUnknownMovieError(err) {
			PageNotFound(response, err)
		} else {
			BadRequest(response, err)
		}
		return
	}
	ctx := request.Request.Context()
	if s.Config.Recommend.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.Recommend.Timeout)
		defer cancel()
	}

	// load from cache
	key := recommendKey(req)
	if data, err := s.CacheClient.Get(ctx, key); err == nil {
		var cached RecommendResponse
		if err = json.Unmarshal(data, &cached); err == nil {
			RecommendCacheHitTotal.Inc()
			GetRecommendSeconds.Observe(time.Since(start).Seconds())
			Ok(response, cached)
			return
		}
		log.Logger().Warn("failed to decode cached recommendation", zap.String("key", key), zap.Error(err))
	} else if !errors.Is(err, errors.NotFound) {
		log.Logger().Warn("failed to load cached recommendation", zap.String("key", key), zap.Error(err))
	}
	RecommendCacheMissTotal.Inc()

	result, err := s.Recommender.Recommend(ctx, req)
	var resp RecommendResponse
	switch {
	case err == nil:
		resp.Warnings = result.Warnings
		resp.Items = lo.Map(result.Items, func(item logics.Item, _ int) ScoredMovie {
			return ScoredMovie{Movie: NewMovie(item.CatalogMovie), Score: item.Score}
		})
	case logics.IsDegenerateInputError(err):
		resp = s.unranked(err, req.K)
	case dataset.IsUnknownMovieError(err):
		PageNotFound(response, err)
		return
	case errors.Is(err, errors.NotValid):
		BadRequest(response, err)
		return
	default:
		InternalServerError(response, err)
		return
	}
	if resp.Items == nil {
		resp.Items = []ScoredMovie{}
	}

	// save to cache
	if data, err := json.Marshal(resp); err != nil {
		log.Logger().Warn("failed to encode recommendation", zap.Error(err))
	} else if err = s.CacheClient.Set(ctx, key, data, s.Config.Recommend.CacheTTL); err != nil {
		log.Logger().Warn("failed to cache recommendation", zap.String("key", key), zap.Error(err))
	}
	GetRecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, resp)
}

// parseRequest resolves titles and movie ids to catalog columns.
func (s *Server) parseRequest(body *RecommendRequest) (logics.Request, error) {
	matrix := s.Recommender.Catalog().Matrix
	byTitle, err := matrix.ResolveTitles(body.Ratings)
	if err != nil {
		return logics.Request{}, errors.Trace(err)
	}
	byId, err := matrix.ResolveIds(body.Movies)
	if err != nil {
		return logics.Request{}, errors.Trace(err)
	}
	query := make(map[int32]float32, len(byTitle)+len(byId))
	for column, rating := range byTitle {
		query[column] = rating
	}
	for column, rating := range byId {
		if _, exist := query[column]; exist {
			return logics.Request{}, errors.NotValidf("movie %d rated twice", matrix.Movie(column).MovieId)
		}
		query[column] = rating
	}
	req := logics.Request{
		Query:        query,
		Strategy:     logics.Mix,
		K:            s.Config.Recommend.DefaultN,
		NumNeighbors: body.Neighbors,
	}
	if body.Strategy != "" {
		if req.Strategy, err = logics.ParseStrategy(body.Strategy); err != nil {
			return logics.Request{}, errors.Trace(err)
		}
	}
	if body.N != 0 {
		req.K = body.N
	}
	if body.Filter != "" {
		if req.Filter, err = logics.NewFilter(body.Filter); err != nil {
			return logics.Request{}, errors.Trace(err)
		}
	}
	return req, nil
}

// unranked returns at most k candidates of a degenerate request in column order.
func (s *Server) unranked(err error, k int) RecommendResponse {
	var degenerate *logics.DegenerateInputError
	errors.As(err, &degenerate)
	candidates := slices.Clone(degenerate.Candidates)
	slices.SortFunc(candidates, func(a, b model.Score) int {
		return int(a.Column) - int(b.Column)
	})
	matrix := s.Recommender.Catalog().Matrix
	resp := RecommendResponse{Warnings: []string{degenerate.Error()}}
	for _, candidate := range candidates[:min(k, len(candidates))] {
		resp.Items = append(resp.Items, ScoredMovie{Movie: NewMovie(matrix.Movie(candidate.Column))})
	}
	return resp
}

// recommendKey renders a request canonically.
func recommendKey(req logics.Request) string {
	columns := make([]int32, 0, len(req.Query))
	for column := range req.Query {
		columns = append(columns, column)
	}
	slices.Sort(columns)
	var builder strings.Builder
	fmt.Fprintf(&builder, "recommend/%s/%d/%d/", req.Strategy, req.K, req.NumNeighbors)
	for i, column := range columns {
		if i > 0 {
			builder.WriteByte(',')
		}
		fmt.Fprintf(&builder, "%d:%v", column, req.Query[column])
	}
	if req.Filter != nil {
		builder.WriteString("/")
		builder.WriteString(req.Filter.String())
	}
	return builder.String()
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
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

func (s *Server) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.ResponseLogger(response).Error("unauthorized", zap.String("X-API-Key", apikey))
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
	return false
}
