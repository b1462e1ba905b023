package http

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"deliveryeta/ml"

	"go.uber.org/zap"
)

//go:embed templates/*.html static/*
var assets embed.FS

// slider describes one range input of the form.
type slider struct {
	Name  string
	Label string
	Min   string
	Max   string
	Step  string
	Value string
}

func defaultSliders() []slider {
	return []slider{
		{Name: "age", Label: "Delivery Partner Age", Min: "18", Max: "60", Step: "1", Value: "30"},
		{Name: "rating", Label: "Delivery Partner Rating", Min: "1.0", Max: "5.0", Step: "0.1", Value: "4.5"},
		{Name: "distance", Label: "Distance (in KM)", Min: "0.1", Max: "20.0", Step: "0.1", Value: "2.0"},
	}
}

type pageData struct {
	Title        string
	ModelVersion string
	Sliders      []slider
	Result       string
	Error        string
}

type pageRenderer struct {
	page  *template.Template
	title string
}

func newPageRenderer(title string) (*pageRenderer, error) {
	page, err := template.ParseFS(assets, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &pageRenderer{page: page, title: title}, nil
}

func (p *pageRenderer) render(w http.ResponseWriter, status int, data pageData) error {
	data.Title = p.title
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return p.page.Execute(w, data)
}

func staticHandler() http.Handler {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(static)))
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		ModelVersion: h.predictor.Artifact().Version,
		Sliders:      defaultSliders(),
	}
	if err := h.ui.render(w, http.StatusOK, data); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

// handlePredictForm serves the non-script form submission and renders the
// page again with the result and the submitted slider positions.
func (h *handlers) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		ModelVersion: h.predictor.Artifact().Version,
		Sliders:      defaultSliders(),
	}
	status := http.StatusOK

	if err := r.ParseForm(); err != nil {
		status = http.StatusBadRequest
		data.Error = "invalid form submission"
		if err := h.ui.render(w, status, data); err != nil {
			h.logger.Error("render page", zap.Error(err))
		}
		return
	}
	for i := range data.Sliders {
		if v := strings.TrimSpace(r.PostForm.Get(data.Sliders[i].Name)); v != "" {
			data.Sliders[i].Value = v
		}
	}

	if input, err := parseForm(r); err != nil {
		status = http.StatusBadRequest
		data.Error = err.Error()
	} else if resp, code, err := h.predict(r.Context(), input); err != nil {
		status = code
		data.Error = err.Error()
	} else {
		data.Result = resp.Text
	}

	if err := h.ui.render(w, status, data); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

func parseForm(r *http.Request) (ml.FeatureVector, error) {
	age, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("age")))
	if err != nil {
		return ml.FeatureVector{}, errors.New("age must be a number")
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(r.PostForm.Get("rating")), 64)
	if err != nil {
		return ml.FeatureVector{}, errors.New("rating must be a number")
	}
	distance, err := strconv.ParseFloat(strings.TrimSpace(r.PostForm.Get("distance")), 64)
	if err != nil {
		return ml.FeatureVector{}, errors.New("distance must be a number")
	}
	return newFeatureVector(age, rating, distance)
}
