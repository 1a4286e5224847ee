package extraction

import "sort"

// pattern pairs a lowercase phrase found in speech with its canonical label.
type pattern struct {
	phrase string
	label  string
}

// symptomPatterns are scanned in order; the order decides which label becomes
// the primary condition when one line mentions several.
var symptomPatterns = []pattern{
	{"migraine", "Migraine"},
	{"headache", "Headache"},
	{"acne", "Acne"},
	{"pimple", "Acne"},
	{"breakout", "Acne"},
	{"nausea", "Nausea"},
	{"nauseous", "Nausea"},
	{"dizzy", "Dizziness"},
	{"dizziness", "Dizziness"},
	{"vomiting", "Vomiting"},
	{"throwing up", "Vomiting"},
	{"fever", "Fever"},
	{"cough", "Cough"},
	{"sore throat", "Sore Throat"},
	{"congestion", "Congestion"},
	{"stuffy nose", "Congestion"},
	{"rash", "Rash"},
	{"itchy", "Itching"},
	{"heartburn", "Heartburn"},
	{"acid reflux", "Heartburn"},
	{"cold sore", "Cold Sore"},
	{"pink eye", "Conjunctivitis"},
	{"allergies", "Allergies"},
	{"pain", "Pain"},
}

// locationPatterns map spoken body locations to the terms used in the record.
// sortedLocationPatterns holds the same entries ordered longest phrase first.
var locationPatterns = []pattern{
	{"back of head", "posterior head"},
	{"back of my head", "posterior head"},
	{"front of head", "anterior head"},
	{"front of my head", "anterior head"},
	{"side of head", "lateral head"},
	{"side of my head", "lateral head"},
	{"forehead", "frontal"},
	{"temple", "temporal"},
	{"lower back", "lumbar"},
	{"upper back", "thoracic"},
	{"face", "facial"},
	{"chest", "chest"},
	{"stomach", "abdominal"},
	{"abdomen", "abdominal"},
	{"throat", "throat"},
	{"eye", "ocular"},
	{"back", "back"},
}

var sortedLocationPatterns = sortByPhraseLength(locationPatterns)

// medicationPatterns cover the over-the-counter products callers mention most.
var medicationPatterns = []pattern{
	{"tylenol", "Tylenol"},
	{"acetaminophen", "Acetaminophen"},
	{"advil", "Advil"},
	{"motrin", "Advil"},
	{"ibuprofen", "Ibuprofen"},
	{"aleve", "Aleve"},
	{"naproxen", "Naproxen"},
	{"aspirin", "Aspirin"},
	{"benadryl", "Benadryl"},
	{"claritin", "Claritin"},
	{"reactine", "Reactine"},
	{"gravol", "Gravol"},
	{"tums", "Tums"},
	{"pepto", "Pepto-Bismol"},
	{"benzoyl peroxide", "Benzoyl Peroxide"},
	{"antibiotic", "Antibiotic"},
}

// sortByPhraseLength returns a copy ordered by descending phrase length so
// "back of head" is tried before "back". Equal lengths keep table order.
func sortByPhraseLength(in []pattern) []pattern {
	out := make([]pattern, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].phrase) > len(out[j].phrase)
	})
	return out
}
