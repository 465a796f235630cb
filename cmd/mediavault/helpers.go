package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func parsePositiveID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func formatBytes(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func formatDisplayTimePtr(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return formatDisplayTime(*value)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "…" + path[len(path)-max+1:]
}
