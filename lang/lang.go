package lang

import (
	"log"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	mu       sync.RWMutex
	messages map[string]string
)

// defaults cover every user-facing ticket string so the bot works without a
// lang.yml. A catalogue file overrides keys per language.
var defaults = map[string]string{
	"ticket_created":        "Your ticket has been created: <#{channel}>",
	"ticket_exists":         "You already have an open ticket: <#{channel}>",
	"ticket_limit":          "This server has reached its open ticket limit. Please try again later.",
	"ticket_no_permission":  "I need the Manage Channels permission to open tickets here.",
	"ticket_create_failed":  "Something went wrong while creating your ticket. Please try again.",
	"ticket_pick_category":  "Please pick a category for your ticket:",
	"ticket_menu_timeout":   "Ticket creation timed out. Run the command again when you're ready.",
	"ticket_closing":        "Closing ticket...",
	"ticket_closed":         "Ticket closed.",
	"ticket_close_no_perms": "I can't close this ticket: I'm missing Manage Channels or Read Message History here.",
	"ticket_close_failed":   "Something went wrong while closing this ticket.",
	"ticket_not_ticket":     "This is not a ticket channel.",
	"ticket_list_empty":     "No open tickets.",
	"ticket_closeall_done":  "Closed {closed} ticket(s), {failed} failed.",
	"ticket_setup_done":     "Ticket settings saved.",
	"admin_only":            "You need admin permissions to use this command.",
}

// Load reads the YAML catalogue at path and merges it over the defaults.
// The file holds one block per language plus an active_language key.
func Load(path string) {
	merged := make(map[string]string, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[lang] Could not read %s: %v — using built-in strings", path, err)
		set(merged)
		return
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		log.Fatalf("[lang] Failed to parse %s: %v", path, err)
	}

	activeLang := "en"
	if v, ok := raw["active_language"]; ok {
		if s, ok := v.(string); ok && s != "" {
			activeLang = s
		}
	}

	block, ok := raw[activeLang].(map[string]interface{})
	if !ok {
		log.Printf("[lang] Language %q not found in %s — using built-in strings", activeLang, path)
		set(merged)
		return
	}

	for k, v := range block {
		if s, ok := v.(string); ok {
			merged[k] = s
		}
	}
	set(merged)
	log.Printf("[lang] Loaded language %q (%d keys)", activeLang, len(merged))
}

func set(m map[string]string) {
	mu.Lock()
	messages = m
	mu.Unlock()
}

// T looks up a message and substitutes {placeholder} pairs. Unknown keys
// render as {key} so a missing string is visible instead of blank.
func T(key string, pairs ...string) string {
	mu.RLock()
	s, ok := messages[key]
	mu.RUnlock()

	if !ok {
		if s, ok = defaults[key]; !ok {
			return "{" + key + "}"
		}
	}

	for j := 0; j+1 < len(pairs); j += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[j]+"}", pairs[j+1])
	}
	return s
}
