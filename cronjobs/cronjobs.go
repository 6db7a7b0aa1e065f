package cronjobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"go-mlapi/types"
)

// runTimeout bounds a single scheduled feed run.
const runTimeout = 5 * time.Minute

type FeedRunner interface {
	Run(ctx context.Context, uri string, limit int) (types.RunReport, error)
}

// Staggered offsets the minute field of an "*/N ..." schedule so feeds do not all
// run at once: "*/10 * * * *" with offset 2 becomes "2-59/10 * * * *".
func Staggered(schedule string, offset int) string {
	fields := strings.Fields(schedule)
	if offset == 0 || len(fields) != 5 || !strings.HasPrefix(fields[0], "*/") {
		return schedule
	}
	fields[0] = fmt.Sprintf("%d-59%s", offset, strings.TrimPrefix(fields[0], "*"))
	return strings.Join(fields, " ")
}

// InitCronJobs schedules one job per feed uri, two minutes apart, and starts the scheduler.
func InitCronJobs(runner FeedRunner, uris []string, limit int, schedule string) (*cron.Cron, error) {
	log.Println("\nStarting Cron Jobs -------------------------------------------------------")
	c := cron.New()

	for i, uri := range uris {
		feedURI := uri
		spec := Staggered(schedule, (i*2)%60)
		_, err := c.AddFunc(spec, func() {
			log.Printf("\nCronJob: feed %s running", feedURI)
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()
			if _, err := runner.Run(ctx, feedURI, limit); err != nil {
				log.Printf("Error running feed %s: %v", feedURI, err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("error scheduling feed %s with %q: %w", feedURI, spec, err)
		}
	}

	c.Start()
	return c, nil
}
