package cloudreve

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

const (
	workflowPath         = "/workflow"
	workflowDownloadPath = "/workflow/download"
)

// TaskListPageSize is the page_size of task list requests. The monitor
// scans only the first page, so this bounds how many concurrent tasks a
// category can hold before a submitted job may be missed.
const TaskListPageSize = 100

type createDownloadRequest struct {
	Dst string   `json:"dst"`
	Src []string `json:"src"`
}

type taskListResponse struct {
	Tasks []taskResponse `json:"tasks"`
}

type taskResponse struct {
	Status  string       `json:"status"`
	Error   string       `json:"error"`
	Summary *taskSummary `json:"summary"`
}

type taskSummary struct {
	Phase string    `json:"phase"`
	Props taskProps `json:"props"`
}

type taskProps struct {
	SrcStr   string            `json:"src_str"`
	Download *downloadResponse `json:"download"`
}

// downloadResponse mirrors summary.props.download. The byte total is read
// from size, falling back to total_size.
type downloadResponse struct {
	Name       string             `json:"name"`
	Size       int64              `json:"size"`
	TotalSize  int64              `json:"total_size"`
	Downloaded int64              `json:"downloaded"`
	Speed      int64              `json:"download_speed"`
	Files      []downloadFileResp `json:"files"`
}

type downloadFileResp struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Progress float64 `json:"progress"`
}

func (t *taskResponse) toTask() Task {
	task := Task{
		Status: t.Status,
		Error:  t.Error,
	}

	if t.Summary == nil {
		return task
	}

	task.Source = t.Summary.Props.SrcStr

	if d := t.Summary.Props.Download; d != nil {
		detail := &DownloadDetail{
			Name:       d.Name,
			TotalSize:  d.Size,
			Downloaded: d.Downloaded,
			Speed:      d.Speed,
			Files:      make([]DownloadFile, 0, len(d.Files)),
		}

		if detail.TotalSize == 0 {
			detail.TotalSize = d.TotalSize
		}

		for _, f := range d.Files {
			detail.Files = append(detail.Files, DownloadFile(f))
		}

		task.Download = detail
	}

	return task
}

// CreateDownload submits a remote-download job. The backend returns no
// handle this client relies on; callers correlate by source URL.
func (c *Client) CreateDownload(ctx context.Context, dst string, src []string) error {
	c.logger.Info("submitting remote download",
		slog.String("dst", dst),
		slog.Int("sources", len(src)),
	)

	_, err := c.Do(ctx, http.MethodPost, workflowDownloadPath, nil, createDownloadRequest{Dst: dst, Src: src})

	return err
}

// ListTasks returns the first page of workflow tasks in a category.
func (c *Client) ListTasks(ctx context.Context, category string) ([]Task, error) {
	query := url.Values{}
	query.Set("category", category)
	query.Set("page_size", strconv.Itoa(TaskListPageSize))

	env, err := c.Do(ctx, http.MethodGet, workflowPath, query, nil)
	if err != nil {
		return nil, err
	}

	if !hasData(env) {
		return nil, nil
	}

	var resp taskListResponse
	if err := decodeData(env, &resp); err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(resp.Tasks))
	for i := range resp.Tasks {
		tasks = append(tasks, resp.Tasks[i].toTask())
	}

	c.logger.Debug("fetched task list",
		slog.String("category", category),
		slog.Int("count", len(tasks)),
	)

	return tasks, nil
}
