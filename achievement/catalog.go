package achievement

import "github.com/pqtu-edu/progresskit/model"

// DefaultCatalog is the built-in achievement set for the education app.
// Entries with no persona apply to every persona.
func DefaultCatalog() []model.Achievement {
	return []model.Achievement{
		// Shared milestones.
		{
			ID: "first_question", Title: "Primeira Pergunta",
			Description: "Ask your first question", Icon: "💬",
			XPReward: 10, Category: "engagement", Rarity: model.RarityCommon,
			Criteria: model.Criteria{Type: model.CriteriaInteractions, Threshold: 1},
		},
		{
			ID: "curious_mind", Title: "Mente Curiosa",
			Description: "Record 10 interactions", Icon: "🔍",
			XPReward: 25, Category: "engagement", Rarity: model.RarityCommon,
			Criteria: model.Criteria{Type: model.CriteriaInteractions, Threshold: 10},
		},
		{
			ID: "dedicated_learner", Title: "Estudante Dedicado",
			Description: "Record 50 interactions", Icon: "📚",
			XPReward: 100, Category: "engagement", Rarity: model.RarityUncommon,
			Criteria: model.Criteria{Type: model.CriteriaInteractions, Threshold: 50},
		},
		{
			ID: "level_5", Title: "Meio Caminho",
			Description: "Reach level 5", Icon: "⭐",
			XPReward: 50, Category: "progression", Rarity: model.RarityUncommon,
			Criteria: model.Criteria{Type: model.CriteriaLevel, Threshold: 5},
		},
		{
			ID: "level_10", Title: "Especialista PQT-U",
			Description: "Reach the level cap", Icon: "🏆",
			XPReward: 0, Category: "progression", Rarity: model.RarityLegendary,
			Criteria: model.Criteria{Type: model.CriteriaLevel, Threshold: 10},
		},
		{
			ID: "streak_3", Title: "Constância",
			Description: "3-day activity streak", Icon: "🔥",
			XPReward: 30, Category: "streak", Rarity: model.RarityCommon,
			Criteria: model.Criteria{Type: model.CriteriaStreak, Threshold: 3},
		},
		{
			ID: "streak_7", Title: "Semana Completa",
			Description: "7-day activity streak", Icon: "📅",
			XPReward: 70, Category: "streak", Rarity: model.RarityRare,
			Criteria: model.Criteria{Type: model.CriteriaStreak, Threshold: 7},
		},
		{
			ID: "perfect_answer", Title: "Resposta Perfeita",
			Description: "Score a perfect quiz answer", Icon: "🎯",
			XPReward: 20, Category: "quiz", Rarity: model.RarityCommon,
			Criteria: model.Criteria{Type: model.CriteriaSource, Source: model.SourcePerfectAnswer},
		},
		{
			ID: "xp_1000", Title: "Mil Pontos",
			Description: "Accumulate 1000 XP", Icon: "💎",
			XPReward: 0, Category: "progression", Rarity: model.RarityRare,
			Criteria: model.Criteria{Type: model.CriteriaTotalXP, Threshold: 1000},
		},

		// Persona-specific.
		{
			ID: "dr_technical_10", Persona: model.PersonaDr, Title: "Rigor Técnico",
			Description: "10 interactions with the technical assistant", Icon: "🔬",
			XPReward: 40, Category: "persona", Rarity: model.RarityUncommon,
			Criteria: model.Criteria{Type: model.CriteriaInteractions, Threshold: 10},
		},
		{
			ID: "ga_welcome_10", Persona: model.PersonaGa, Title: "Acolhimento",
			Description: "10 interactions with the empathetic assistant", Icon: "🤗",
			XPReward: 40, Category: "persona", Rarity: model.RarityUncommon,
			Criteria: model.Criteria{Type: model.CriteriaInteractions, Threshold: 10},
		},
	}
}
