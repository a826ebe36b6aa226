// Package scene holds the fixed scenario catalog and per-scenario play
// statistics queried by the session flows.
package scene

import "sync"

// Scene is one simulated-conversation exercise: static prompt content plus the
// mutable play counters that accumulate over the application lifetime.
type Scene struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	Context     string   `json:"context"`
	Prompts     []string `json:"prompts"`

	// Duration is the target session length in seconds.
	Duration int `json:"duration"`

	// TimesPlayed counts completed attempts at this scenario.
	TimesPlayed int `json:"times_played"`

	// BestScore is the monotonic maximum score across all attempts.
	BestScore int `json:"best_score"`
}

// Stats is the persisted mutable part of a scene.
type Stats struct {
	TimesPlayed int `json:"times_played"`
	BestScore   int `json:"best_score"`
}

// defaultScenes is the fixed scenario catalog.
var defaultScenes = []Scene{
	{
		ID:          "client",
		Title:       "Client sceptique",
		Emoji:       "🤨",
		Description: "Un prospect remet en question ta proposition",
		Context:     "Tu présentes ton offre à un client potentiel qui semble dubitatif.",
		Prompts: []string{
			`"Vos concurrents font moins cher..."`,
			`"Je ne suis pas convaincu."`,
			`"Quel ROI puis-je espérer ?"`,
		},
		Duration: 90,
	},
	{
		ID:          "question",
		Title:       "Question difficile",
		Emoji:       "😰",
		Description: "On te met sur la sellette",
		Context:     "En réunion, quelqu'un te pose une question déstabilisante.",
		Prompts: []string{
			`"Comment expliquez-vous cet échec ?"`,
			`"Vous êtes sûr de tenir ces délais ?"`,
			`"Quels risques ne mentionnez-vous pas ?"`,
		},
		Duration: 60,
	},
}

// Registry holds the scenario catalog and its play statistics.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	scenes []Scene
}

// NewRegistry creates a Registry populated with the fixed catalog.
func NewRegistry() *Registry {
	scenes := make([]Scene, len(defaultScenes))
	copy(scenes, defaultScenes)
	return &Registry{scenes: scenes}
}

// All returns a copy of every scene, in catalog order.
func (r *Registry) All() []Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scene, len(r.scenes))
	copy(out, r.scenes)
	return out
}

// Get returns the scene with the given id, or false when the id is unknown.
func (r *Registry) Get(id string) (Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.scenes {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}

// UpdateScore records a completed attempt at the given scenario: the play
// counter always increments and the best score only ever rises. An unknown id
// is a no-op, never an error.
func (r *Registry) UpdateScore(id string, score int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.scenes {
		if r.scenes[i].ID != id {
			continue
		}
		r.scenes[i].TimesPlayed++
		if score > r.scenes[i].BestScore {
			r.scenes[i].BestScore = score
		}
		return
	}
}

// Stats returns the mutable counters keyed by scene id, for persistence.
func (r *Registry) Stats() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Stats, len(r.scenes))
	for _, s := range r.scenes {
		out[s.ID] = Stats{TimesPlayed: s.TimesPlayed, BestScore: s.BestScore}
	}
	return out
}

// Restore applies previously persisted counters. Ids not present in the
// catalog are ignored.
func (r *Registry) Restore(stats map[string]Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.scenes {
		if st, ok := stats[r.scenes[i].ID]; ok {
			r.scenes[i].TimesPlayed = st.TimesPlayed
			r.scenes[i].BestScore = st.BestScore
		}
	}
}
