package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	LoginSuccess         int
	LoginFailures        int
	Registrations        int
	OrdersPlaced         int
	OrdersRolledBack     int
	CouponsApplied       int
	NotificationsSent    int
	NotificationRetries  int
	NotificationFailures int
	SQLInjectionAttempts int
	XSSAttempts          int
	TotalErrors          int
	Requests             int
	FailedRequests       int
	StatusClasses        map[string]int
	UserActivities       map[string]int
	ErrorPatterns        map[string]int
	Malformed            int
}

func newLogStats() *LogStats {
	return &LogStats{
		StatusClasses:  make(map[string]int),
		UserActivities: make(map[string]int),
		ErrorPatterns:  make(map[string]int),
	}
}

// logEntry is one slog JSON line
type logEntry struct {
	Level  string `json:"level"`
	Msg    string `json:"msg"`
	Status int    `json:"status"`
}

func main() {
	logDir := flag.String("dir", "./logs", "directory holding the daily log files")
	date := flag.String("date", time.Now().Format("2006-01-02"), "day to analyze (YYYY-MM-DD)")
	flag.Parse()

	stats := newLogStats()
	for _, name := range []string{"info", "error"} {
		path := filepath.Join(*logDir, fmt.Sprintf("%s-%s.log", name, *date))
		if err := analyzeFile(path, stats); err != nil {
			fmt.Printf("Error reading log file %s: %v\n", path, err)
		}
	}

	printReport(os.Stdout, *date, stats)
}

func analyzeFile(path string, stats *LogStats) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return analyzeLogs(file, stats)
}

func analyzeLogs(r io.Reader, stats *LogStats) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var entry logEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			stats.Malformed++
			continue
		}
		countEntry(entry, stats)
	}
	return scanner.Err()
}

func countEntry(e logEntry, stats *LogStats) {
	msg := e.Msg
	switch {
	case msg == "request":
		stats.Requests++
		stats.StatusClasses[fmt.Sprintf("%dxx", e.Status/100)]++
		if e.Status >= 400 {
			stats.FailedRequests++
		}
	case strings.HasPrefix(msg, "User logged in"), strings.HasPrefix(msg, "Google login"):
		stats.LoginSuccess++
		extractUserActivity(msg, stats)
	case strings.HasPrefix(msg, "Failed login for"):
		stats.LoginFailures++
		extractUserActivity(msg, stats)
	case strings.HasPrefix(msg, "User registered"):
		stats.Registrations++
		extractUserActivity(msg, stats)
	case strings.HasPrefix(msg, "Order") && strings.Contains(msg, " placed by user "):
		stats.OrdersPlaced++
	case strings.HasPrefix(msg, "Order creation for user") && strings.Contains(msg, "rolled back"):
		stats.OrdersRolledBack++
	case strings.HasPrefix(msg, "Coupon") && strings.Contains(msg, " applied to order "):
		stats.CouponsApplied++
	case msg == "notification sent", msg == "notification email sent":
		stats.NotificationsSent++
	case msg == "notification delivery failed, retrying":
		stats.NotificationRetries++
	case msg == "Failed to send notification":
		stats.NotificationFailures++
	case strings.HasPrefix(msg, "Rejected unsafe input: SQL injection"):
		stats.SQLInjectionAttempts++
	case strings.HasPrefix(msg, "Rejected unsafe input: XSS"):
		stats.XSSAttempts++
	}

	if e.Level == "ERROR" {
		stats.TotalErrors++
		extractErrorPattern(msg, stats)
	}
}

func extractUserActivity(msg string, stats *LogStats) {
	for _, field := range strings.Fields(msg) {
		if strings.Contains(field, "@") {
			stats.UserActivities[strings.Trim(field, ":,()")]++
			return
		}
	}
}

// extractErrorPattern keeps the message up to the first colon so errors with
// different ids group together
func extractErrorPattern(msg string, stats *LogStats) {
	pattern := msg
	if i := strings.Index(pattern, ":"); i > 0 {
		pattern = pattern[:i]
	}
	stats.ErrorPatterns[strings.TrimSpace(pattern)]++
}

func printReport(w io.Writer, date string, stats *LogStats) {
	fmt.Fprintln(w, "\n=== GamerShop Log Analysis Report ===")
	fmt.Fprintln(w, "Day:", date)

	fmt.Fprintln(w, "\n1. Authentication Statistics:")
	fmt.Fprintf(w, "   Successful Logins: %d\n", stats.LoginSuccess)
	fmt.Fprintf(w, "   Failed Logins: %d\n", stats.LoginFailures)
	fmt.Fprintf(w, "   Registrations: %d\n", stats.Registrations)

	fmt.Fprintln(w, "\n2. Orders and Coupons:")
	fmt.Fprintf(w, "   Orders Placed: %d\n", stats.OrdersPlaced)
	fmt.Fprintf(w, "   Orders Rolled Back: %d\n", stats.OrdersRolledBack)
	fmt.Fprintf(w, "   Coupons Applied: %d\n", stats.CouponsApplied)

	fmt.Fprintln(w, "\n3. Notifications:")
	fmt.Fprintf(w, "   Sent: %d\n", stats.NotificationsSent)
	fmt.Fprintf(w, "   Retried: %d\n", stats.NotificationRetries)
	fmt.Fprintf(w, "   Failed: %d\n", stats.NotificationFailures)

	fmt.Fprintln(w, "\n4. Security Incidents:")
	fmt.Fprintf(w, "   SQL Injection Attempts: %d\n", stats.SQLInjectionAttempts)
	fmt.Fprintf(w, "   XSS Attempts: %d\n", stats.XSSAttempts)

	fmt.Fprintln(w, "\n5. Requests:")
	fmt.Fprintf(w, "   Total: %d (failed %d)\n", stats.Requests, stats.FailedRequests)
	for _, class := range sortedKeys(stats.StatusClasses) {
		fmt.Fprintf(w, "   %s: %d\n", class, stats.StatusClasses[class])
	}

	fmt.Fprintln(w, "\n6. Error Statistics:")
	fmt.Fprintf(w, "   Total Errors: %d\n", stats.TotalErrors)
	if stats.Malformed > 0 {
		fmt.Fprintf(w, "   Unparseable Lines: %d\n", stats.Malformed)
	}

	fmt.Fprintln(w, "\n7. Most Active Users:")
	for _, c := range topCounts(stats.UserActivities, 5) {
		fmt.Fprintf(w, "   %s: %d activities\n", c.key, c.count)
	}

	fmt.Fprintln(w, "\n8. Most Common Errors:")
	for _, c := range topCounts(stats.ErrorPatterns, 5) {
		fmt.Fprintf(w, "   %s: %d occurrences\n", c.key, c.count)
	}
}

type keyCount struct {
	key   string
	count int
}

// topCounts returns the limit largest entries, ties broken by key
func topCounts(m map[string]int, limit int) []keyCount {
	list := make([]keyCount, 0, len(m))
	for k, v := range m {
		list = append(list, keyCount{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].key < list[j].key
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
