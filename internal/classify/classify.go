// Package classify sorts reactivity records into danger tiers with a fixed
// rule set. The same records always produce the same classification.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"mixsafe-gateway/internal/chem"
)

// Classifier turns records into a Classification.
type Classifier interface {
	Classify(records []chem.Record) (chem.Classification, error)
}

// Rules is the built-in Classifier.
type Rules struct{}

func New() Rules { return Rules{} }

type hazardWeight struct {
	keyword        string
	weight         int
	category       string
	recommendation string
}

// Checked in order; each hazard contributes its first matching weight.
var hazardWeights = []hazardWeight{
	{"explos", 30, "explosion", "폭발 위험이 있는 조합이에요. 절대 같은 용기나 공간에서 섞지 마세요."},
	{"toxic gas", 25, "toxic_gas", "유독가스가 생길 수 있어요. 반드시 따로 사용하고 사용 후 충분히 환기하세요."},
	{"fire", 20, "fire", "화재 위험이 있어요. 불씨와 열원을 멀리하세요."},
	{"flammable", 20, "fire", "화재 위험이 있어요. 불씨와 열원을 멀리하세요."},
	{"toxic", 20, "toxic_gas", "유독가스가 생길 수 있어요. 반드시 따로 사용하고 사용 후 충분히 환기하세요."},
	{"gas generation", 15, "gas", "가스가 발생할 수 있어요. 밀폐된 공간에서 섞지 마세요."},
	{"corrosive", 15, "corrosive", "피부와 눈에 화상을 입을 수 있어요. 장갑과 보안경을 착용하세요."},
	{"heat generation", 10, "heat", "열이 발생할 수 있어요. 소량씩 천천히 다루고 뜨거운 물과 함께 쓰지 마세요."},
	{"pressuriz", 10, "pressure", "용기가 부풀거나 터질 수 있어요. 뚜껑을 닫은 채 보관하지 마세요."},
}

const (
	baseIncompatible = 50
	baseCaution      = 20
	baseUnknown      = 10
	otherHazard      = 5
	maxSeverity      = 100
)

// Classify partitions records into dangerous, caution and safe buckets.
// Incompatible pairs are dangerous, caution and unknown pairs need caution,
// compatible pairs are safe. Every record lands in exactly one bucket.
func (Rules) Classify(records []chem.Record) (chem.Classification, error) {
	out := chem.Classification{
		DangerousPairs: []chem.Pair{},
		CautionPairs:   []chem.Pair{},
		SafePairs:      []chem.Pair{},
	}
	categories := map[string]bool{}

	for i, rec := range records {
		if strings.TrimSpace(rec.Chemical1) == "" || strings.TrimSpace(rec.Chemical2) == "" {
			return chem.Classification{}, chem.E("classify", chem.KindInternal,
				fmt.Sprintf("record %d has an empty substance name", i), nil)
		}

		pair := chem.Pair{Record: rec, HazardCount: len(rec.Hazards)}
		switch rec.Status {
		case chem.Incompatible:
			pair.RiskLevel = chem.RiskHigh
			pair.SeverityScore = severity(baseIncompatible, rec.Hazards, categories)
			out.DangerousPairs = append(out.DangerousPairs, pair)
		case chem.Caution:
			pair.RiskLevel = chem.RiskMedium
			pair.SeverityScore = severity(baseCaution, rec.Hazards, categories)
			out.CautionPairs = append(out.CautionPairs, pair)
		case chem.Compatible:
			pair.RiskLevel = chem.RiskNone
			out.SafePairs = append(out.SafePairs, pair)
		default:
			pair.RiskLevel = chem.RiskLow
			pair.SeverityScore = baseUnknown
			out.CautionPairs = append(out.CautionPairs, pair)
			categories["unknown"] = true
		}
	}

	sortBySeverity(out.DangerousPairs)
	sortBySeverity(out.CautionPairs)

	out.Summary = summarize(out)
	out.Recommendations = recommendations(out.Summary.OverallStatus, categories)
	return out, nil
}

func severity(base int, hazards []string, categories map[string]bool) int {
	score := base
	for _, h := range hazards {
		lower := strings.ToLower(h)
		matched := false
		for _, w := range hazardWeights {
			if strings.Contains(lower, w.keyword) {
				score += w.weight
				categories[w.category] = true
				matched = true
				break
			}
		}
		if !matched {
			score += otherHazard
		}
	}
	if score > maxSeverity {
		score = maxSeverity
	}
	return score
}

// stable so equal scores keep upstream order
func sortBySeverity(pairs []chem.Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].SeverityScore > pairs[j].SeverityScore
	})
}

func summarize(c chem.Classification) chem.Summary {
	s := chem.Summary{
		DangerousCount: len(c.DangerousPairs),
		CautionCount:   len(c.CautionPairs),
		SafeCount:      len(c.SafePairs),
	}
	s.TotalPairs = s.DangerousCount + s.CautionCount + s.SafeCount

	switch {
	case s.DangerousCount > 0:
		s.OverallStatus = chem.StatusDanger
		s.Message = fmt.Sprintf("위험: %d개의 위험한 조합이 발견되었습니다!", s.DangerousCount)
	case s.CautionCount > 0:
		s.OverallStatus = chem.StatusCaution
		s.Message = fmt.Sprintf("주의: %d개의 조합에 주의가 필요합니다.", s.CautionCount)
	default:
		s.OverallStatus = chem.StatusSafe
		s.Message = "안전: 위험한 조합이 발견되지 않았습니다."
	}
	return s
}

func recommendations(status chem.OverallStatus, categories map[string]bool) []string {
	recs := []string{}
	switch status {
	case chem.StatusDanger:
		recs = append(recs, "이 제품들은 절대 섞어 쓰지 마세요.")
	case chem.StatusCaution:
		recs = append(recs, "함께 사용할 때는 설명서를 확인하고 주의하세요.")
	default:
		recs = append(recs, "함께 사용해도 안전하지만 제품별 사용법은 지켜주세요.")
	}

	added := map[string]bool{}
	for _, w := range hazardWeights {
		if !categories[w.category] || added[w.category] {
			continue
		}
		added[w.category] = true
		recs = append(recs, w.recommendation)
	}
	if categories["unknown"] {
		recs = append(recs, "반응성 정보가 없는 조합이 있어요. 확인되기 전까지는 섞지 마세요.")
	}
	if status != chem.StatusSafe {
		recs = append(recs, "사고가 나면 즉시 환기하고 119 또는 중독정보센터에 연락하세요.")
	}
	return recs
}
