// Package directory holds the static year -> persona lookup table.
//
// The table itself ships with the binary; agent identifiers are supplied
// at startup (typically from AGENT_ID_<year> environment variables) because
// they are produced by a separate provisioning run. An entry with an empty
// AgentID is listed and dialable but cannot open a session.
package directory

import (
	"math/rand"
	"sort"
)

// Persona is a single directory entry. Immutable once the directory is built.
type Persona struct {
	// Key is the 4-character dial code, zero-padded. Chronological, with
	// the exception of 0069 which the app keeps below Cleopatra's true
	// year as a dialing convention.
	Key      string
	Name     string
	AgentID  string
	Era      string
	Greeting string
}

// Provisioned reports whether the persona has an agent id to dial.
func (p Persona) Provisioned() bool { return p.AgentID != "" }

// Directory maps 4-digit year keys to personas. Built once, never mutated.
type Directory struct {
	byKey map[string]Persona
	keys  []string
}

// New builds the directory from the built-in persona table, filling agent
// ids from the given map (missing years get an empty id).
func New(agentIDs map[string]string) *Directory {
	d := &Directory{byKey: make(map[string]Persona, len(entries))}
	for _, e := range entries {
		e.AgentID = agentIDs[e.Key]
		d.byKey[e.Key] = e
		d.keys = append(d.keys, e.Key)
	}
	sort.Strings(d.keys)
	return d
}

// Lookup returns the persona for an exact key match.
func (d *Directory) Lookup(key string) (Persona, bool) {
	p, ok := d.byKey[key]
	return p, ok
}

// Keys returns all dialable keys in ascending order.
func (d *Directory) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Random returns a uniformly chosen key. Unprovisioned entries are
// included; dialing one fails with a distinct "unprovisioned" error.
func (d *Directory) Random() string {
	return d.keys[rand.Intn(len(d.keys))]
}

// Len returns the number of entries.
func (d *Directory) Len() int { return len(d.keys) }

var entries = []Persona{
	{
		Key:      "0044",
		Name:     "Julius Caesar",
		Era:      "Roman Empire",
		Greeting: "Salve! Who speaks through this strange device?",
	},
	{
		Key:      "0069",
		Name:     "Cleopatra",
		Era:      "Ancient Egypt",
		Greeting: "Who dares summon the Queen of the Nile?",
	},
	{
		Key:      "0399",
		Name:     "Socrates",
		Era:      "Ancient Greece",
		Greeting: "Ah, a visitor. Tell me, what do you seek to know?",
	},
	{
		Key:      "1429",
		Name:     "Joan of Arc",
		Era:      "Hundred Years' War",
		Greeting: "I hear voices... is this another divine message?",
	},
	{
		Key:      "1505",
		Name:     "Leonardo da Vinci",
		Era:      "Renaissance",
		Greeting: "Fascinating! What manner of invention is this?",
	},
	{
		Key:      "1776",
		Name:     "Benjamin Franklin",
		Era:      "American Revolution",
		Greeting: "By thunder! Is this some form of electrical communication?",
	},
	{
		Key:      "1863",
		Name:     "Abraham Lincoln",
		Era:      "Civil War",
		Greeting: "Good day to you. How may I be of service?",
	},
	{
		Key:      "1889",
		Name:     "Nikola Tesla",
		Era:      "Age of Electricity",
		Greeting: "Remarkable! Wireless communication, just as I envisioned!",
	},
	{
		Key:      "1911",
		Name:     "Marie Curie",
		Era:      "Radioactivity Research",
		Greeting: "Bonjour! How curious... what elements power this device?",
	},
	{
		Key:      "1945",
		Name:     "Albert Einstein",
		Era:      "Modern Physics",
		Greeting: "Interesting... time and space continue to surprise me.",
	},
	{
		Key:      "1969",
		Name:     "Neil Armstrong",
		Era:      "Space Age",
		Greeting: "Houston, we have... a caller? This is unexpected.",
	},
}

// Years lists the keys of the built-in table, for wiring agent ids from
// configuration without duplicating the table.
func Years() []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key)
	}
	sort.Strings(out)
	return out
}
