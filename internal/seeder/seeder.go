// Package seeder generates synthetic Suricata EVE records for demos
// and load testing.
package seeder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Weighted mix of EVE event types, roughly matching a quiet sensor.
var eventTypes = []string{
	"flow", "flow", "flow", "dns", "dns", "http", "tls", "alert",
}

var alertSignatures = []string{
	"ET SCAN Nmap Scripting Engine User-Agent Detected",
	"ET POLICY SSH Outbound Connection",
	"ET MALWARE Possible Beaconing Detected",
	"SURICATA HTTP unable to match response to request",
	"ET DNS Query for Suspicious Domain",
	"ET EXPLOIT Possible SQL Injection Attempt",
}

var alertCategories = []string{
	"Attempted Information Leak",
	"Potentially Bad Traffic",
	"A Network Trojan was detected",
	"Misc activity",
}

// Generator produces EVE JSON lines.
type Generator struct {
	faker *gofakeit.Faker
}

// New creates a Generator. The same seed reproduces the same stream;
// seed 0 randomizes.
func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Event returns one newline-terminated EVE record.
func (g *Generator) Event(now time.Time) []byte {
	eventType := g.faker.RandomString(eventTypes)

	rec := map[string]any{
		"timestamp":  now.Format("2006-01-02T15:04:05.000000-0700"),
		"flow_id":    g.faker.Int64(),
		"event_type": eventType,
		"src_ip":     g.faker.IPv4Address(),
		"src_port":   g.faker.IntRange(1024, 65535),
		"dest_ip":    g.faker.IPv4Address(),
		"dest_port":  g.faker.RandomInt([]int{22, 53, 80, 443, 8080}),
		"proto":      g.faker.RandomString([]string{"TCP", "UDP"}),
	}

	switch eventType {
	case "alert":
		rec["alert"] = map[string]any{
			"action":      "allowed",
			"gid":         1,
			"signature_id": g.faker.IntRange(2000000, 2999999),
			"signature":   g.faker.RandomString(alertSignatures),
			"category":    g.faker.RandomString(alertCategories),
			"severity":    g.faker.IntRange(1, 3),
		}
	case "dns":
		rec["dns"] = map[string]any{
			"type":   "query",
			"rrname": g.faker.DomainName(),
			"rrtype": g.faker.RandomString([]string{"A", "AAAA", "TXT"}),
		}
	case "http":
		rec["http"] = map[string]any{
			"hostname":      g.faker.DomainName(),
			"url":           "/" + g.faker.Word(),
			"http_method":   g.faker.HTTPMethod(),
			"status":        g.faker.HTTPStatusCodeSimple(),
			"http_user_agent": g.faker.UserAgent(),
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		// map[string]any of scalars cannot fail to marshal
		panic(fmt.Sprintf("seeder: marshal event: %v", err))
	}
	return append(line, '\n')
}

// Events returns n records spaced at the current time.
func (g *Generator) Events(n int) [][]byte {
	out := make([][]byte, 0, n)
	now := time.Now()
	for i := 0; i < n; i++ {
		out = append(out, g.Event(now))
	}
	return out
}
