// Command handlers for duplicate detection and merging.
package taskboard

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

func RunDupes(includeCompleted bool, opts GlobalOptions) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	d := sess.deduplicator()
	matches := d.FindDuplicates(includeCompleted)
	stats := SummarizeMatches(matches)
	if opts.JSON {
		if matches == nil {
			matches = []Match{}
		}
		return writeJSON(os.Stdout, dupesOutput{Matches: matches, Stats: stats})
	}
	renderMatches(os.Stdout, sess.store, matches, stats, stdoutIsTTY())
	return nil
}

type MergeOptions struct {
	Preview bool
	Auto    bool
	DryRun  bool
	// Take lists fields sourced from the removed task, as "field" or
	// "field=remove"; "field=keep" is accepted and changes nothing.
	Take []string
}

func RunMerge(args []string, mergeOpts MergeOptions, opts GlobalOptions) error {
	if mergeOpts.Auto {
		if len(args) != 0 || mergeOpts.Preview || len(mergeOpts.Take) > 0 {
			return errors.New("usage: taskboard merge --auto [--dry-run]")
		}
		return runAutoMerge(mergeOpts.DryRun, opts)
	}
	if len(args) != 2 {
		return errors.New("usage: taskboard merge <keep-id> <remove-id> [--preview] [--take field]...")
	}
	keepID, removeID := args[0], args[1]

	if mergeOpts.Preview || mergeOpts.DryRun {
		sess, err := openSession(opts)
		if err != nil {
			return err
		}
		preview, err := sess.deduplicator().Preview(keepID, removeID)
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(os.Stdout, preview)
		}
		renderPreview(os.Stdout, preview, stdoutIsTTY())
		return nil
	}

	take, err := parseTake(mergeOpts.Take)
	if err != nil {
		return err
	}
	strategy, err := ManualStrategy(keepID, removeID, take)
	if err != nil {
		return err
	}
	return withWriteSession(opts, "merge", func(sess *session) error {
		merged, err := sess.deduplicator().ManualMerge(strategy)
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(os.Stdout, buildTaskOutput(sess.store, merged, time.Now()))
		}
		fmt.Printf("%s → %s\n", removeID, merged.ID)
		return nil
	})
}

func parseTake(values []string) ([]string, error) {
	var fields []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			field, side, hasSide := strings.Cut(item, "=")
			switch {
			case !hasSide || side == "remove":
				fields = append(fields, field)
			case side == "keep":
			default:
				return nil, fmt.Errorf("usage: --take %s: side must be keep or remove", item)
			}
		}
	}
	return fields, nil
}

func runAutoMerge(dryRun bool, opts GlobalOptions) error {
	run := func(sess *session) error {
		merged, err := sess.deduplicator().AutoMerge(dryRun)
		if merged == nil {
			merged = []string{}
		}
		if opts.JSON {
			if werr := writeJSON(os.Stdout, merged); werr != nil {
				return werr
			}
		} else {
			for _, line := range merged {
				fmt.Println(line)
			}
			verb := "merged"
			if dryRun {
				verb = "would be merged"
			}
			sess.info("%d pairs %s", len(merged), verb)
		}
		return err
	}
	if dryRun {
		sess, err := openSession(opts)
		if err != nil {
			return err
		}
		return run(sess)
	}
	return withWriteSession(opts, "merge", run)
}
