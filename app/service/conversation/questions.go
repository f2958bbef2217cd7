package conversation

var questions = []Category{
	{
		Name: "Nutrition",
		Questions: []string{
			"What are the best foods during pregnancy?",
			"How much water should I drink daily?",
			"What nutrients are essential for my baby?",
		},
	},
	{
		Name: "Exercise",
		Questions: []string{
			"What exercises are safe during pregnancy?",
			"Can I do yoga while pregnant?",
			"How can I stay active safely?",
		},
	},
	{
		Name: "Common Concerns",
		Questions: []string{
			"Is it normal to feel tired all the time?",
			"How do I manage morning sickness?",
			"What should I avoid during pregnancy?",
		},
	},
}

// Questions returns a copy of the predefined question catalog.
func (s *Service) Questions() []Category {
	result := make([]Category, 0, len(questions))
	for _, category := range questions {
		result = append(result, Category{
			Name:      category.Name,
			Questions: append([]string(nil), category.Questions...),
		})
	}

	return result
}
