package search

import (
	"errors"
	"fmt"
	"log"

	"github.com/adr-fetch/scrapers"
)

// RunBatch executes one batch search on the given pilot, driving the task
// through its lifecycle. It is meant to run on a background worker; the
// pilot must already be initialized and is released exactly once here,
// whatever way the batch exits.
//
// A failure on a single drug is logged and skipped. A failure to open a
// letter page blocks every drug in that group and fails the whole task.
// Cancellation is checked between drugs and wins over everything else.
func RunBatch(grouped GroupedTargets, pilot scrapers.Pilot, task *Task, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}

	task.MarkRunning()

	defer func() {
		if err := pilot.Close(); err != nil {
			logger.Printf("Warning: failed to close browser: %v", err)
		}
	}()

	if len(grouped) == 0 {
		logger.Println("WARNING: no drug targets provided, aborting search")
		task.MarkCancelled()
		return
	}

	logger.Printf("Starting batch of %d drugs in %d letter groups", grouped.Total(), len(grouped))

	for _, group := range grouped {
		if err := CheckInterrupted(task); err != nil {
			task.MarkCancelled()
			return
		}

		if err := pilot.OpenLetterPage(group.Letter); err != nil {
			logger.Printf("ERROR: letter page %q unreachable: %v", group.Letter, err)
			task.MarkFailed(fmt.Errorf("letter page %q unreachable: %w", group.Letter, err))
			return
		}

		for _, drug := range group.Drugs {
			if err := CheckInterrupted(task); err != nil {
				task.MarkCancelled()
				return
			}

			logger.Printf("Collecting data for drug: %s", drug)
			path, err := pilot.FetchDrug(drug)
			if err != nil {
				if errors.Is(err, ErrTaskInterrupted) {
					task.MarkCancelled()
					return
				}
				logger.Printf("ERROR: failed to fetch %s, skipping this drug: %v", drug, err)
				continue
			}
			logger.Printf("Successfully downloaded file %s", path)
		}
	}

	if task.IsCancelled() {
		task.MarkCancelled()
		return
	}
	task.MarkCompleted()
	logger.Println("Search for drugs is finished, please check your downloads")
}
