package screening

import "strings"

// Criteria holds the rubric keyword lists sent to the judge.
type Criteria struct {
	UniversityTypes         []string `mapstructure:"university-types"`
	ExcludedUniversityTypes []string `mapstructure:"excluded-university-types"`
	ResearchKeywords        []string `mapstructure:"research-keywords"`
	EducationStatus         []string `mapstructure:"education-status"`
	GraduationKeywords      []string `mapstructure:"graduation-keywords"`
	TopCompanies            []string `mapstructure:"top-companies"`
}

// DefaultCriteria returns the rubric used for the internship selection process.
func DefaultCriteria() Criteria {
	return Criteria{
		UniversityTypes: []string{
			"federal", "estadual", "state", "fed", "UFMG", "USP", "UNICAMP", "UNESP", "UFRJ",
			"UNB", "UFPR", "UFSC", "UFRGS", "UFC",
		},
		ExcludedUniversityTypes: []string{
			"particular", "private", "privada", "faculdade", "centro universitário", "universidade particular",
			"PUC", "UNINOVE", "UNIP", "ANHANGUERA", "ESTÁCIO", "MACKENZIE", "IBMEC", "FAAP", "FIAP", "FATEC",
			"SENAC", "SENAI", "ANHEMBI", "LAUREATE", "PITÁGORAS", "UNIBAN", "UNIVERSO", "UNESA", "UNISUL",
			"UNIFACS", "UNINASSAU", "MAURÍCIO DE NASSAU", "SÃO JUDAS", "UNICESUMAR", "NEWTON PAIVA", "UNIASSELVI",
		},
		ResearchKeywords: []string{
			"iniciação científica", "scientific initiation", "research", "pesquisa científica", "PIBIC",
			"bolsista de iniciação", "projeto de pesquisa",
		},
		EducationStatus: []string{
			"cursando", "em andamento", "em curso", "atual", "previsão de conclusão", "graduando",
			"estudante atual", "estudante de graduação", "bacharelado em andamento", "sem concluir",
			"não-concluído", "período atual", "semestre atual",
		},
		GraduationKeywords: []string{
			"graduado", "bacharel em", "formado em", "concluído em", "diploma de", "conclusion", "completed",
			"concluído", "ensino superior completo", "graduação completa", "graduated",
		},
		TopCompanies: []string{
			"Google", "Microsoft", "Amazon", "Meta", "Facebook", "Apple", "IBM", "Oracle", "SAP", "Intel",
			"Cisco", "Dell", "HP", "NVIDIA", "Samsung", "Sony", "Siemens", "LG", "Huawei", "LinkedIn",
			"Accenture", "Capgemini", "Deloitte", "Ernst & Young", "EY", "KPMG", "PwC", "BCG", "McKinsey", "Bain",
			"Itaú", "Bradesco", "Santander", "Banco do Brasil", "Caixa", "Vale", "Petrobras", "Embraer",
			"Ambev", "Natura", "Magazine Luiza", "Nubank", "iFood", "Mercado Livre", "PagSeguro", "Stone",
			"XP Investimentos", "BTG Pactual", "B3", "Totvs", "Movile", "QuintoAndar", "Creditas", "Loggi",
		},
	}
}

// WithDefaults replaces empty lists with the default ones.
func (c Criteria) WithDefaults() Criteria {
	d := DefaultCriteria()
	pick := func(v, def []string) []string {
		cleaned := make([]string, 0, len(v))
		for _, item := range v {
			if item = strings.TrimSpace(item); item != "" {
				cleaned = append(cleaned, item)
			}
		}
		if len(cleaned) == 0 {
			return def
		}
		return cleaned
	}

	return Criteria{
		UniversityTypes:         pick(c.UniversityTypes, d.UniversityTypes),
		ExcludedUniversityTypes: pick(c.ExcludedUniversityTypes, d.ExcludedUniversityTypes),
		ResearchKeywords:        pick(c.ResearchKeywords, d.ResearchKeywords),
		EducationStatus:         pick(c.EducationStatus, d.EducationStatus),
		GraduationKeywords:      pick(c.GraduationKeywords, d.GraduationKeywords),
		TopCompanies:            pick(c.TopCompanies, d.TopCompanies),
	}
}

func (c Criteria) placeholders() map[string]string {
	return map[string]string{
		"{{UNIVERSITY_TYPES}}":          strings.Join(c.UniversityTypes, ", "),
		"{{EXCLUDED_UNIVERSITY_TYPES}}": strings.Join(c.ExcludedUniversityTypes, ", "),
		"{{RESEARCH_KEYWORDS}}":         strings.Join(c.ResearchKeywords, ", "),
		"{{EDUCATION_STATUS}}":          strings.Join(c.EducationStatus, ", "),
		"{{GRADUATION_KEYWORDS}}":       strings.Join(c.GraduationKeywords, ", "),
		"{{TOP_COMPANIES}}":             strings.Join(c.TopCompanies, ", "),
	}
}
