package portal

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/logging"
)

// Job statuses reported by the portal.
const (
	StatusProcessing = "processing"
	StatusPartial    = "partial"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// OverwriteResult describes the outcome of an overwrite.
type OverwriteResult struct {
	Success  bool          `json:"success"            yaml:"success"`
	LayerID  string        `json:"layer_id"           yaml:"layer_id"`
	SourceID string        `json:"source_id"          yaml:"source_id"`
	FileName string        `json:"file_name"          yaml:"file_name"`
	JobID    string        `json:"job_id,omitempty"   yaml:"job_id,omitempty"`
	Status   string        `json:"status"             yaml:"status"`
	Message  string        `json:"message,omitempty"  yaml:"message,omitempty"`
	Duration time.Duration `json:"duration"           yaml:"duration"`
}

type updateResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type publishResponse struct {
	Services []struct {
		Type          string `json:"type"`
		ServiceURL    string `json:"serviceurl"`
		ServiceItemID string `json:"serviceItemId"`
		JobID         string `json:"jobId"`
		Success       *bool  `json:"success"`
		Error         *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"services"`
}

type statusResponse struct {
	Status        string `json:"status"`
	StatusMessage string `json:"statusMessage"`
	ItemID        string `json:"itemId"`
}

// Overwrite replaces the features of the hosted layer with the contents of
// the file at path. The file's base name must equal the name of the file
// item the layer was published from; otherwise nothing is uploaded and an
// *errors.FileNameMismatchError is returned.
//
// The steps are: resolve the layer and its source item, upload the file to
// the source item, republish it with overwrite=true, and poll the publish
// job until it completes, fails, or ctx expires. A failed step yields a
// result with Success false together with an *errors.OverwriteError. No
// step is retried.
func (c *Client) Overwrite(ctx context.Context, layerID, path string) (*OverwriteResult, error) {
	start := time.Now()
	res := &OverwriteResult{LayerID: layerID, FileName: filepath.Base(path)}
	ctx = logging.WithItem(ctx, layerID)
	logger := logging.FromContext(ctx)

	fail := func(status, msg string, err error) (*OverwriteResult, error) {
		res.Success = false
		res.Status = status
		res.Message = msg
		if err != nil && msg == "" {
			res.Message = err.Error()
		}
		res.Duration = time.Since(start)
		logger.Error().Err(err).Str("status", status).Msg("Overwrite failed")
		return res, &errors.OverwriteError{LayerID: layerID, JobID: res.JobID, Status: status, Message: msg, Err: err}
	}

	layer, err := c.Item(ctx, layerID)
	if err != nil {
		return fail("resolve", "could not fetch layer item", err)
	}
	src, err := c.SourceItem(ctx, layerID)
	if err != nil {
		return fail("resolve", "could not find the item the layer was published from", err)
	}
	res.SourceID = src.ID

	if res.FileName != src.Name {
		res.Status = "rejected"
		res.Message = "file name does not match published file"
		res.Duration = time.Since(start)
		return res, &errors.FileNameMismatchError{Expected: src.Name, Got: res.FileName}
	}

	owner := src.Owner
	if owner == "" {
		owner = layer.Owner
	}
	userPath := "/content/users/" + url.PathEscape(owner)

	logger.Info().Str("source_id", src.ID).Str("file", res.FileName).Msg("Uploading file")
	var up updateResponse
	if err := c.postFile(ctx, userPath+"/items/"+url.PathEscape(src.ID)+"/update", nil, path, &up); err != nil {
		return fail("upload", "", err)
	}
	if !up.Success {
		return fail("upload", "portal did not accept the file", nil)
	}

	params, err := json.Marshal(map[string]any{"name": layer.Name})
	if err != nil {
		return fail("publish", "", err)
	}
	form := url.Values{
		"itemID":            {src.ID},
		"filetype":          {c.publishType},
		"overwrite":         {"true"},
		"publishParameters": {string(params)},
	}
	logger.Info().Msg("Publishing with overwrite")
	var pub publishResponse
	if err := c.postForm(ctx, userPath+"/publish", form, &pub); err != nil {
		return fail("publish", "", err)
	}
	if len(pub.Services) == 0 {
		return fail("publish", "portal returned no service", nil)
	}
	svc := pub.Services[0]
	if svc.Error != nil {
		return fail("publish", svc.Error.Message, nil)
	}
	if svc.Success != nil && !*svc.Success {
		return fail("publish", "portal reported publish failure", nil)
	}
	res.JobID = svc.JobID

	if res.JobID == "" {
		res.Success = true
		res.Status = StatusCompleted
		res.Duration = time.Since(start)
		return res, nil
	}

	status, err := c.waitForJob(ctx, userPath, layerID, res.JobID)
	if err != nil {
		return fail(status.Status, status.StatusMessage, err)
	}
	if status.Status != StatusCompleted {
		msg := status.StatusMessage
		if msg == "" {
			msg = "publish job ended with status " + status.Status
		}
		return fail(status.Status, msg, nil)
	}

	res.Success = true
	res.Status = StatusCompleted
	res.Message = status.StatusMessage
	res.Duration = time.Since(start)
	logger.Info().Dur("duration", res.Duration).Msg("Overwrite completed")
	return res, nil
}

// waitForJob polls the publish job through a rate limiter while it is
// processing. Completed, failed and partial end the wait, as does any
// status the portal does not document; the caller treats everything but
// completed as a failed overwrite.
func (c *Client) waitForJob(ctx context.Context, userPath, itemID, jobID string) (statusResponse, error) {
	limiter := rate.NewLimiter(rate.Every(c.pollInterval), constants.StatusPollBurst)
	params := url.Values{"jobId": {jobID}, "jobType": {"publish"}}
	last := statusResponse{Status: StatusProcessing}

	for {
		if err := limiter.Wait(ctx); err != nil {
			return last, &errors.TimeoutError{
				Operation: "overwrite status",
				Message:   "job " + jobID + " still " + last.Status,
			}
		}
		var st statusResponse
		if err := c.getJSON(ctx, userPath+"/items/"+url.PathEscape(itemID)+"/status", params, &st); err != nil {
			if ctx.Err() != nil {
				return last, &errors.TimeoutError{Operation: "overwrite status", Message: ctx.Err().Error()}
			}
			return last, err
		}
		last = st
		logging.FromContext(ctx).Debug().Str("job_id", jobID).Str("status", st.Status).Msg("Job status")

		switch st.Status {
		case StatusProcessing, "":
			continue
		case StatusCompleted, StatusFailed, StatusPartial:
			return st, nil
		default:
			logging.FromContext(ctx).Warn().Str("job_id", jobID).Str("status", st.Status).Msg("Unknown job status")
			return st, nil
		}
	}
}
