package bot

import (
	"context"
	"fmt"
	"strings"

	"registerbot/pkg/ports/chatport"
	"registerbot/pkg/store"
)

const jobTemplate = `---
Title: %s
Job Type: %s
Location: %s
Date: %s
Department: %s
Url: %s
`

// entryLevelTypes are the job types shown for a bare "jobs" query.
var entryLevelTypes = map[string]bool{
	"new graduate": true,
	"intern/co-op": true,
	"entry level":  true,
}

// HandleAllJobs sends every stored job listing.
func (b *Bot) HandleAllJobs(ctx context.Context, msg chatport.Message) error {
	jobs, err := b.store.ListJobs(ctx)
	if err != nil {
		return err
	}
	return b.respondWithJobs(ctx, msg.PersonID, jobs)
}

// HandleJobs answers "jobs" with entry-level listings and "jobs <term>" with
// a substring search over department, title and job type.
func (b *Bot) HandleJobs(ctx context.Context, msg chatport.Message) error {
	term := strings.TrimSpace(strings.Replace(strings.ToLower(msg.Text), "jobs", "", 1))

	jobs, err := b.store.ListJobs(ctx)
	if err != nil {
		return err
	}

	if term == "" {
		return b.respondWithJobs(ctx, msg.PersonID, filterEntryLevel(jobs))
	}
	return b.respondWithJobs(ctx, msg.PersonID, searchJobs(jobs, term))
}

func (b *Bot) respondWithJobs(ctx context.Context, personID string, jobs []store.Job) error {
	for _, job := range jobs {
		if _, err := b.chat.SendMessage(ctx, personID, formatJob(job)); err != nil {
			return err
		}
	}
	return nil
}

func formatJob(job store.Job) string {
	return fmt.Sprintf(jobTemplate,
		job.Title,
		job.JobType,
		job.Location,
		job.Date,
		job.Department,
		job.URL,
	)
}

func searchJobs(jobs []store.Job, term string) []store.Job {
	var result []store.Job
	for _, job := range jobs {
		switch {
		case strings.Contains(strings.ToLower(job.Department), term):
			result = append(result, job)
		case strings.Contains(strings.ToLower(job.Title), term):
			result = append(result, job)
		case strings.Contains(strings.ToLower(job.JobType), term):
			result = append(result, job)
		}
	}
	return result
}

func filterEntryLevel(jobs []store.Job) []store.Job {
	var result []store.Job
	for _, job := range jobs {
		if entryLevelTypes[strings.ToLower(job.JobType)] {
			result = append(result, job)
		}
	}
	return result
}
