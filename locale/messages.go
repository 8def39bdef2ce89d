// Package locale holds the user-facing strings of the recommendation page.
package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys are the English text.
const (
	PageTitle       = "Smart Crop Recommendation"
	PageIntro       = "Enter the soil and climate conditions to receive the best crop recommendation!"
	SubmitButton    = "Recommend Crop"
	Recommended     = "Recommended crop: %s"
	Probabilities   = "Probabilities by Crop"
	ProbabilityAxis = "Probability (%%)"
	CropAxis        = "Crop"
	ErrorOccurred   = "An error occurred: %s"
	InvalidInput    = "Invalid input: %s"
	NoProbabilities = "This model does not provide probability estimates."
	LivePreview     = "Live preview"
	HowItWorks      = "How does it work?"
	FactorsIntro    = "The system analyses 7 critical factors:"
	FactorNutrients = "Soil nutrients (N, P, K)"
	FactorClimate   = "Climate conditions (temperature, humidity)"
	FactorSoil      = "Soil pH and rainfall"
	Disclaimer      = "Results are statistical recommendations. Consult an agronomist for final decisions."

	LabelNitrogen    = "Nitrogen (N)"
	LabelPhosphorus  = "Phosphorus (P)"
	LabelPotassium   = "Potassium (K)"
	LabelTemperature = "Temperature"
	LabelHumidity    = "Relative Humidity"
	LabelPH          = "Soil pH"
	LabelRainfall    = "Rainfall"
)

var supported = []language.Tag{
	language.English,
	language.BrazilianPortuguese,
}

var portuguese = map[string]string{
	PageTitle:       "Recomendação Inteligente de Cultivos",
	PageIntro:       "Insira as condições do solo e clima para receber a melhor recomendação de cultivo!",
	SubmitButton:    "Recomendar Cultivo",
	Recommended:     "Cultivo Recomendado: %s",
	Probabilities:   "Probabilidades por Cultivo",
	ProbabilityAxis: "Probabilidade (%%)",
	CropAxis:        "Cultivo",
	ErrorOccurred:   "Ocorreu um erro: %s",
	InvalidInput:    "Entrada inválida: %s",
	NoProbabilities: "Este modelo não fornece estimativas de probabilidade.",
	LivePreview:     "Prévia ao vivo",
	HowItWorks:      "Como funciona?",
	FactorsIntro:    "O sistema analisa 7 fatores críticos:",
	FactorNutrients: "Nutrientes do solo (N, P, K)",
	FactorClimate:   "Condições climáticas (temperatura, umidade)",
	FactorSoil:      "pH do solo e precipitação",
	Disclaimer:      "Os resultados são recomendações estatísticas. Consulte um agrônomo para decisões finais.",

	LabelNitrogen:    "Nitrogênio (N)",
	LabelPhosphorus:  "Fósforo (P)",
	LabelPotassium:   "Potássio (K)",
	LabelTemperature: "Temperatura",
	LabelHumidity:    "Umidade Relativa",
	LabelPH:          "pH do Solo",
	LabelRainfall:    "Chuva",
}

// Messages formats strings for one language.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported language; unknown languages fall back to English.
func New(lang string) (*Messages, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range portuguese {
		if err := builder.SetString(language.BrazilianPortuguese, key, msg); err != nil {
			return nil, err
		}
	}

	tag := language.English
	if requested, err := language.Parse(lang); err == nil {
		_, idx, confidence := language.NewMatcher(supported).Match(requested)
		if confidence != language.No {
			tag = supported[idx]
		}
	}

	return &Messages{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}, nil
}

func (m *Messages) Tag() language.Tag {
	return m.tag
}

func (m *Messages) Sprintf(key string, args ...interface{}) string {
	return m.printer.Sprintf(key, args...)
}

// FeatureLabel returns the slider label for a feature name.
func (m *Messages) FeatureLabel(feature string) string {
	keys := map[string]string{
		"N":           LabelNitrogen,
		"P":           LabelPhosphorus,
		"K":           LabelPotassium,
		"temperature": LabelTemperature,
		"humidity":    LabelHumidity,
		"ph":          LabelPH,
		"rainfall":    LabelRainfall,
	}
	key, ok := keys[feature]
	if !ok {
		return feature
	}
	return m.Sprintf(key)
}
