package bot

import (
	"context"
	"testing"

	"registerbot/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJobs(f *fixture) {
	f.store.SeedJobs(
		store.Job{
			URL:        "https://jobs.example.com/1",
			Title:      "Software Engineer",
			JobType:    "Experienced",
			Location:   "Oslo",
			Date:       "2026-09-01",
			Department: "Engineering",
		},
		store.Job{
			URL:        "https://jobs.example.com/2",
			Title:      "Summer Intern",
			JobType:    "Intern/Co-op",
			Location:   "Trondheim",
			Date:       "2026-06-01",
			Department: "Engineering",
		},
		store.Job{
			URL:        "https://jobs.example.com/3",
			Title:      "Graduate Analyst",
			JobType:    "New Graduate",
			Location:   "Bergen",
			Date:       "2026-08-15",
			Department: "Finance",
		},
	)
}

func TestHandleAllJobsSendsEveryListing(t *testing.T) {
	f := newFixture(t)
	seedJobs(f)

	require.NoError(t, f.bot.HandleAllJobs(context.Background(), msg("all jobs")))

	texts := f.fc.SentTexts("user-1")
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "Title: Software Engineer")
	assert.Contains(t, texts[0], "Url: https://jobs.example.com/1")
}

func TestHandleJobsBareListsEntryLevel(t *testing.T) {
	f := newFixture(t)
	seedJobs(f)

	require.NoError(t, f.bot.HandleJobs(context.Background(), msg("jobs")))

	texts := f.fc.SentTexts("user-1")
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Summer Intern")
	assert.Contains(t, texts[1], "Graduate Analyst")
}

func TestHandleJobsSearchMatchesDepartmentTitleAndType(t *testing.T) {
	f := newFixture(t)
	seedJobs(f)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleJobs(ctx, msg("jobs finance")))
	texts := f.fc.SentTexts("user-1")
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Graduate Analyst")

	f2 := newFixture(t)
	seedJobs(f2)
	require.NoError(t, f2.bot.HandleJobs(ctx, msg("JOBS Software")))
	texts = f2.fc.SentTexts("user-1")
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Software Engineer")
}

func TestHandleJobsSearchWithoutMatchesSendsNothing(t *testing.T) {
	f := newFixture(t)
	seedJobs(f)

	require.NoError(t, f.bot.HandleJobs(context.Background(), msg("jobs basket weaving")))

	assert.Empty(t, f.fc.SentTexts("user-1"))
}

func TestFormatJob(t *testing.T) {
	formatted := formatJob(store.Job{
		URL:        "https://jobs.example.com/1",
		Title:      "Software Engineer",
		JobType:    "Experienced",
		Location:   "Oslo",
		Date:       "2026-09-01",
		Department: "Engineering",
	})

	assert.Equal(t, `---
Title: Software Engineer
Job Type: Experienced
Location: Oslo
Date: 2026-09-01
Department: Engineering
Url: https://jobs.example.com/1
`, formatted)
}
