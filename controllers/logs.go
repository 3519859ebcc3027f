package controllers

import (
	"io"
	"time"

	"schooldesk_go/services/activity"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
)

type LogController struct {
	recorder *activity.Recorder
	archiver *activity.Archiver
	days     int
}

func NewLogController(rec *activity.Recorder, arch *activity.Archiver, archiveDays int) *LogController {
	return &LogController{recorder: rec, archiver: arch, days: archiveDays}
}

func logQuery(c *fiber.Ctx) (store.ActivityQuery, error) {
	userID, err := queryUint(c, "user_id")
	if err != nil {
		return store.ActivityQuery{}, err
	}
	from, err := queryDate(c, "start_date")
	if err != nil {
		return store.ActivityQuery{}, err
	}
	to, err := queryDate(c, "end_date")
	if err != nil {
		return store.ActivityQuery{}, err
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	return store.ActivityQuery{UserID: userID, Action: c.Query("action"), Resource: c.Query("resource"), From: from, To: to}, nil
}

// GetLogs retrieves paginated activity logs with filters
func (lc *LogController) GetLogs(c *fiber.Ctx) error {
	q, err := logQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := lc.recorder.List(c.UserContext(), q, c.QueryInt("page", 1), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func (lc *LogController) GetLogStats(c *fiber.Ctx) error {
	stats, err := lc.recorder.Stats(c.UserContext(), time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

type deleteLogsRequest struct {
	Days int `json:"days"`
}

// DeleteOldLogs drops entries older than the given number of days
func (lc *LogController) DeleteOldLogs(c *fiber.Ctx) error {
	var req deleteLogsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	n, err := lc.recorder.DeleteOlderThan(c.UserContext(), req.Days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Old logs deleted", "deleted": n})
}

// ExportLogs downloads the filtered entries as a zip of JSON and CSV
func (lc *LogController) ExportLogs(c *fiber.Ctx) error {
	q, err := logQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	buf, name, err := lc.archiver.Export(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(buf.Bytes())
}

// FlushCachedLogs moves Redis-cached entries into the database now
func (lc *LogController) FlushCachedLogs(c *fiber.Ctx) error {
	n, err := lc.recorder.Flush(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cached logs flushed", "flushed": n})
}

type archiveRequest struct {
	Days int `json:"days"`
}

// ArchiveLogs uploads old entries to S3 and removes them
func (lc *LogController) ArchiveLogs(c *fiber.Ctx) error {
	var req archiveRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
	}
	if req.Days == 0 {
		req.Days = lc.days
	}
	rec, err := lc.archiver.Archive(c.UserContext(), req.Days)
	if err != nil {
		return respondError(c, err)
	}
	if rec == nil {
		return c.JSON(fiber.Map{"message": "No logs to archive"})
	}
	return c.JSON(fiber.Map{"message": "Logs archived", "archive": rec})
}

func (lc *LogController) GetArchives(c *fiber.Ctx) error {
	rows, err := lc.archiver.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"archives": rows})
}

// DownloadArchive streams a stored archive from S3
func (lc *LogController) DownloadArchive(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	body, name, err := lc.archiver.Download(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	defer body.Close()
	content, err := io.ReadAll(body)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(content)
}
