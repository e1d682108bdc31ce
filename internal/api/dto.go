package api

import "github.com/samcharles93/psrio/pkg/psrfits"

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ObservationListItem struct {
	Name   string `json:"name"`
	Object string `json:"object"`
	Loaded bool   `json:"loaded"`
}

type ObservationList struct {
	Object string                `json:"object"`
	Data   []ObservationListItem `json:"data"`
}

type ObservationResponse struct {
	ID         string              `json:"id"`
	Object     string              `json:"object"`
	Name       string              `json:"name"`
	Descriptor *psrfits.Descriptor `json:"descriptor"`
}

type HistoryResponse struct {
	Object string                 `json:"object"`
	Name   string                 `json:"name"`
	Data   []psrfits.HistoryEntry `json:"data"`
}

type PulseResponse struct {
	Object  string    `json:"object"`
	Name    string    `json:"name"`
	Subint  int       `json:"subint"`
	Pol     int       `json:"pol"`
	Chan    int       `json:"chan"`
	Start   int       `json:"start"`
	Samples []float64 `json:"samples"`
}

type EvictResponse struct {
	Name    string `json:"name"`
	Object  string `json:"object"`
	Evicted bool   `json:"evicted"`
}
