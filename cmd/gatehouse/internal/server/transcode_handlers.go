package server

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

// MaxTranscodeErrorBytes caps the worker error message stored per media item.
const MaxTranscodeErrorBytes = 2048

// transcodeResult is the payload the transcode worker posts when a job ends.
type transcodeResult struct {
	Status               string   `json:"status"`
	MediaID              string   `json:"mediaId"`
	HLSMasterPlaylistKey *string  `json:"hlsMasterPlaylistKey"`
	HLSPreviewKey        *string  `json:"hlsPreviewKey"`
	ThumbnailKey         *string  `json:"thumbnailKey"`
	WaveformKey          *string  `json:"waveformKey"`
	WaveformImageKey     *string  `json:"waveformImageKey"`
	MezzanineKey         *string  `json:"mezzanineKey"`
	DurationSeconds      *int     `json:"durationSeconds"`
	Width                *int     `json:"width"`
	Height               *int     `json:"height"`
	ReadyVariants        []string `json:"readyVariants"`
	Error                *string  `json:"error"`
}

// transcodeCallback handles POST /internal/v1/transcode/callback
//
// Only trusted workers reach this handler. The latest result per media item
// replaces the previous one.
func (h *handlers) transcodeCallback(w http.ResponseWriter, r *http.Request, rc auth.RequestContext) {
	body, ok := h.readValidated(w, r, rc, SchemaTranscodeResult)
	if !ok {
		return
	}

	var res transcodeResult
	if err := json.Unmarshal(body, &res); err != nil {
		apierror.Write(w, apierror.BadRequest("Request body must be valid JSON"))
		return
	}
	if res.ReadyVariants == nil {
		res.ReadyVariants = []string{}
	}
	if res.Error != nil {
		capped := truncateUTF8(*res.Error, MaxTranscodeErrorBytes)
		res.Error = &capped
	}

	rec := &models.MediaTranscode{
		MediaID:              res.MediaID,
		Status:               res.Status,
		HLSMasterPlaylistKey: res.HLSMasterPlaylistKey,
		HLSPreviewKey:        res.HLSPreviewKey,
		ThumbnailKey:         res.ThumbnailKey,
		WaveformKey:          res.WaveformKey,
		WaveformImageKey:     res.WaveformImageKey,
		MezzanineKey:         res.MezzanineKey,
		DurationSeconds:      res.DurationSeconds,
		Width:                res.Width,
		Height:               res.Height,
		ReadyVariants:        res.ReadyVariants,
		Error:                res.Error,
	}
	if err := h.deps.Transcodes.Upsert(r.Context(), rec); err != nil {
		h.internal(w, r, rc, err)
		return
	}

	h.deps.Logger.InfoContext(r.Context(), "transcode result stored",
		"request_id", rc.RequestID,
		"media_id", rec.MediaID,
		"status", rec.Status,
		"variants", len(rec.ReadyVariants),
	)
	apierror.WriteJSON(w, http.StatusAccepted, map[string]string{
		"mediaId": rec.MediaID,
		"status":  rec.Status,
	})
}

// truncateUTF8 shortens s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
