// Package catalog holds the static coaching content consumed read-only by the
// session flows: crystal display metadata, the technique library, and the
// per-mode technique picker.
package catalog

import (
	"math/rand/v2"

	"github.com/spinhq/cadence/pkg/scoring"
)

// Mode selects which technique families a session draws from.
type Mode string

const (
	// ModeFreePractice is an open speaking exercise (voice, structure, impact
	// families).
	ModeFreePractice Mode = "free_practice"

	// ModeScenario is a simulated-conversation exercise (pressure, situation
	// families).
	ModeScenario Mode = "scenario"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == ModeFreePractice || m == ModeScenario
}

// Family groups techniques by the skill they train.
type Family string

const (
	FamilyVoice     Family = "voix"
	FamilyStructure Family = "structure"
	FamilyImpact    Family = "impact"
	FamilyPressure  Family = "pression"
	FamilySituation Family = "situation"
)

// CrystalInfo is the display metadata for one crystal type.
type CrystalInfo struct {
	Name  string
	Emoji string
	Color string
}

// Crystals maps each crystal type to its display metadata.
var Crystals = map[scoring.CrystalType]CrystalInfo{
	scoring.CrystalClarte:   {Name: "Clarté", Emoji: "💙", Color: "#3B82F6"},
	scoring.CrystalImpact:   {Name: "Impact", Emoji: "🧡", Color: "#F59E0B"},
	scoring.CrystalCalme:    {Name: "Calme", Emoji: "💚", Color: "#10B981"},
	scoring.CrystalRepartie: {Name: "Répartie", Emoji: "💜", Color: "#8B5CF6"},
}

// Technique is one coaching technique: when to use it, why it works, and the
// micro-exercise prompt attached to it.
type Technique struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Family         Family              `json:"family"`
	Emoji          string              `json:"emoji"`
	When           string              `json:"when"`
	Why            string              `json:"why"`
	How            []string            `json:"how"`
	ActionPrompt   string              `json:"action_prompt"`
	ActionDuration int                 `json:"action_duration"`
	CrystalType    scoring.CrystalType `json:"crystal_type"`
}

// Techniques is the fixed technique library. Order matters for display.
var Techniques = []Technique{
	{ID: "silence", Name: "Le silence stratégique", Family: FamilyVoice, Emoji: "🤫", When: "En début de prise de parole", Why: "Crée attention et suspense", How: []string{"Marque 1s de silence", "Pose ton regard", "Phrase courte"}, ActionPrompt: "Commence par 2s de silence puis une phrase.", ActionDuration: 30, CrystalType: scoring.CrystalClarte},
	{ID: "escalier", Name: "Le rythme en escalier", Family: FamilyVoice, Emoji: "📶", When: "Discours monotone", Why: "Varier captive", How: []string{"Commence lentement", "Accélère", "Appuie les mots clés"}, ActionPrompt: "Varie ton rythme: lent → normal → appuyé.", ActionDuration: 30, CrystalType: scoring.CrystalClarte},
	{ID: "ancree", Name: "La phrase ancrée", Family: FamilyVoice, Emoji: "⚓", When: "Message important", Why: "Une phrase = une intention", How: []string{"Ralentis", "Pose sur le mot clé", "Micro-pause après"}, ActionPrompt: "Dis une phrase en posant ta voix sur UN mot.", ActionDuration: 30, CrystalType: scoring.CrystalClarte},
	{ID: "message", Name: "Le message clé", Family: FamilyStructure, Emoji: "🎯", When: "Risque de confusion", Why: "Une idée suffit", How: []string{"Identifie le message", "Une phrase", "Commence et termine par lui"}, ActionPrompt: "Résume en UNE phrase de moins de 15 mots.", ActionDuration: 30, CrystalType: scoring.CrystalClarte},
	{ID: "trois", Name: "La règle des 3", Family: FamilyStructure, Emoji: "3️⃣", When: "Argumentation", Why: "Le cerveau retient 3", How: []string{"3 points max", "Annonce-les", "Rappelle en conclusion"}, ActionPrompt: "Présente un sujet en exactement 3 points.", ActionDuration: 45, CrystalType: scoring.CrystalClarte},
	{ID: "pivot", Name: "La phrase pivot", Family: FamilyStructure, Emoji: "🔄", When: "Digression", Why: "Recentrer avec assurance", How: []string{"Identifie la dérive", "Phrase de transition", "Reviens à l'essentiel"}, ActionPrompt: `Parle 15s puis recentre avec "Ce qui compte..."`, ActionDuration: 30, CrystalType: scoring.CrystalClarte},
	{ID: "intention", Name: "L'intention avant les mots", Family: FamilyImpact, Emoji: "💡", When: "Manque d'impact", Why: "L'intention colore le discours", How: []string{"Formule mentalement", "Ressens-la", "Laisse-la guider"}, ActionPrompt: "Choisis une intention puis parle.", ActionDuration: 30, CrystalType: scoring.CrystalImpact},
	{ID: "regard", Name: "Le regard qui décide", Family: FamilyImpact, Emoji: "👁️", When: "Prise de position", Why: "Le regard porte l'autorité", How: []string{"Choisis un point", "Maintiens le regard", "Finis en regardant"}, ActionPrompt: "Dis une affirmation en maintenant ton regard.", ActionDuration: 30, CrystalType: scoring.CrystalImpact},
	{ID: "conclusion", Name: "La conclusion forte", Family: FamilyImpact, Emoji: "🎬", When: "Fin d'intervention", Why: "La fin reste en mémoire", How: []string{"Phrase courte", "Pas de justification", "Silence final"}, ActionPrompt: "Termine par une phrase courte puis STOP.", ActionDuration: 30, CrystalType: scoring.CrystalImpact},
	{ID: "respiration", Name: "La respiration d'ancrage", Family: FamilyPressure, Emoji: "🌬️", When: "Stress", Why: "Le corps rassure la voix", How: []string{"Inspire 4s", "Expire 6s", "Recommence"}, ActionPrompt: "Fais 2 respirations puis parle calmement.", ActionDuration: 30, CrystalType: scoring.CrystalCalme},
	{ID: "pause", Name: "La pause réflexe", Family: FamilyPressure, Emoji: "⏸️", When: "Question piège", Why: "Évite la réaction à chaud", How: []string{"Ne réponds pas tout de suite", "2-3 secondes", "Puis réponds"}, ActionPrompt: "Attends 3 secondes avant de répondre.", ActionDuration: 30, CrystalType: scoring.CrystalCalme},
	{ID: "ralenti", Name: "Le débit ralenti", Family: FamilyPressure, Emoji: "🐢", When: "Enjeu fort", Why: "Ralentir = crédibilité", How: []string{"Identifie ton stress", "Réduis de 20%", "Articule"}, ActionPrompt: "Explique en parlant TRÈS lentement.", ActionDuration: 30, CrystalType: scoring.CrystalCalme},
	{ID: "miroir", Name: "La reformulation miroir", Family: FamilySituation, Emoji: "🪞", When: "Objection", Why: "Comprendre désarme", How: []string{"Écoute", `"Si je comprends bien..."`, "Puis réponds"}, ActionPrompt: "Reformule avant de répondre.", ActionDuration: 45, CrystalType: scoring.CrystalRepartie},
	{ID: "deuxtemps", Name: "La réponse en deux temps", Family: FamilySituation, Emoji: "1️⃣", When: "Question complexe", Why: "Structurer = maîtrise", How: []string{"Identifie les parties", "Annonce", "Point par point"}, ActionPrompt: `Réponds avec "D'abord... Ensuite..."`, ActionDuration: 45, CrystalType: scoring.CrystalRepartie},
	{ID: "reprise", Name: "La question de reprise", Family: FamilySituation, Emoji: "❓", When: "Perte de contrôle", Why: "Poser une question reprend le lead", How: []string{"Identifie le flottement", "Question simple", "Reprends"}, ActionPrompt: "Après 15s, reprends avec une question.", ActionDuration: 30, CrystalType: scoring.CrystalRepartie},
}

// modeFamilies maps each mode to the technique families it draws from.
var modeFamilies = map[Mode][]Family{
	ModeFreePractice: {FamilyVoice, FamilyStructure, FamilyImpact},
	ModeScenario:     {FamilyPressure, FamilySituation},
}

// TechniqueByID returns the technique with the given id, or false when the id
// is unknown.
func TechniqueByID(id string) (Technique, bool) {
	for _, t := range Techniques {
		if t.ID == id {
			return t, true
		}
	}
	return Technique{}, false
}

// TechniqueForMode picks a random technique from the families bound to mode.
// Pass nil rng to use the global source.
func TechniqueForMode(mode Mode, rng *rand.Rand) Technique {
	families := modeFamilies[mode]
	var pool []Technique
	for _, t := range Techniques {
		for _, f := range families {
			if t.Family == f {
				pool = append(pool, t)
				break
			}
		}
	}
	if len(pool) == 0 {
		pool = Techniques
	}
	if rng == nil {
		return pool[rand.IntN(len(pool))]
	}
	return pool[rng.IntN(len(pool))]
}
