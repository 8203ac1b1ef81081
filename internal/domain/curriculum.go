package domain

// DifficultyLevel is one entry of the default difficulty mix offered on the
// authoring form (percentages sum to 100).
type DifficultyLevel struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
}

// DefaultDifficultyMix mirrors the standard four-level distribution used in
// Vietnamese secondary school assessment.
func DefaultDifficultyMix() []DifficultyLevel {
	return []DifficultyLevel{
		{Label: "Nhận biết", Percent: 40},
		{Label: "Thông hiểu", Percent: 30},
		{Label: "Vận dụng", Percent: 20},
		{Label: "Vận dụng cao", Percent: 10},
	}
}

// CurriculumUnits returns the textbook units available per grade, used to
// populate the authoring form.
func CurriculumUnits(grade Grade) []string {
	switch grade {
	case Grade6:
		return []string{
			"Unit 1: My New School",
			"Unit 2: My House",
			"Unit 3: My Friends",
			"Unit 4: My Neighbourhood",
			"Unit 5: Natural Wonders of the World",
			"Unit 6: Our Tet Holiday",
		}
	case Grade7:
		return []string{
			"Unit 1: Hobbies",
			"Unit 2: Healthy Living",
			"Unit 3: Community Service",
			"Unit 4: Music and Arts",
			"Unit 5: Food and Drink",
			"Unit 6: A Visit to School",
		}
	case Grade8:
		return []string{
			"Unit 1: Leisure Time",
			"Unit 2: Life in the Countryside",
			"Unit 3: Teenagers",
			"Unit 4: Ethnic Groups of Viet Nam",
			"Unit 5: Our Customs and Traditions",
			"Unit 6: Lifestyles",
		}
	case Grade9:
		return []string{
			"Unit 1: Local Environment",
			"Unit 2: City Life",
			"Unit 3: Teen Stress and Pressure",
			"Unit 4: Life in the Past",
			"Unit 5: Wonders of Viet Nam",
			"Unit 6: Viet Nam: Then and Now",
		}
	}
	return nil
}
