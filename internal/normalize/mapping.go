package normalize

// DefaultDurationSuffixes are the membership-period markers appended to
// product names in storefront exports.
func DefaultDurationSuffixes() []string {
	return []string{" 30일권", " 365일권", " 7일권", " 1년권", " 1개월권", " 12개월권"}
}

// DefaultProductCodes is the name→prod_no table confirmed against the live
// order API. New products observed in CSV exports get added here once their
// real code is known; until then Resolve falls back to the hash code.
func DefaultProductCodes() map[string]string {
	return map[string]string{
		"K-표현 영어로 풀기":                "815890",
		"SAT급 고급 영단어 1000":           "123456",
		"[VIP시크릿]K-표현 영어로 풀기 30일권":   "815890",
		"[VIP시크릿]네이티브 바이브 영어 30일권":   "472892",
		"[VIP시크릿]바로 써 먹는 일상 일본어 30일권": "318007",
		"[VIP시크릿]월스트리트에서 통하는 영어 30일권": "667062",
		"[미라클-톡] 독일어 멤버십 365일권":      "955731",
		"[미라클-톡] 독일어 멤버십 7일권":        "955731",
		"[미라클-톡] 미라클 1000단어(중급)":     "318007",
		"[미라클-톡] 영어 1년 멤버십":          "472892",
		"[미라클-톡] 영어 멤버십 7일권":         "472892",
		"[미라클-톡] 일본어 멤버십 365일권":      "318007",
		"[미라클-톡] 일본어 멤버십 7일권":        "318007",
		"[미라클-톡] 일본어 멤버십 체험판":        "318007",
		"[시크릿]K-표현 영어로 풀기 30일권":      "815890",
		"[시크릿]SAT급 고급 영단어 1000 30일권": "657779",
		"[시크릿]네이티브 바이브 영어 30일권":      "404493",
		"[시크릿]미국 중학생 영단어 1000 30일권":  "641039",
		"[시크릿]바로 써 먹는 일상 일본어 30일권":   "318007",
		"[시크릿]실전 맞춤 진짜 독일어 30일권":     "955731",
		"[시크릿]왕초보 영단어 1000 30일권":     "30",
		"[시크릿]월스트리트에서 통하는 영어 30일권":   "667062",
		"[시크릿]일상 영어 패턴 레시피 30일권":     "33",
		"[원티드]K-표현 영어로 풀기 30일권":      "815890",
		"[원티드]네이티브 바이브 영어 30일권":      "44",
		"[원티드]미국 중학생 영단어 1000 30일권":  "641039",
		"[원티드]바로 써 먹는 일상 일본어 30일권":   "318007",
		"[원티드]실전 맞춤 진짜 독일어 30일권":     "955731",
		"[원티드]왕초보 영단어 1000 30일권":     "30",
		"[원티드]월스트리트에서 통하는 영어 30일권":   "667062",
		"[원티드]일상 영어 패턴 레시피 30일권":     "33",
		"네이티브 바이브 영어":                "44",
		"미국 중학생 영단어 1000":            "641039",
		"바로 써 먹는 일상 일본어":             "923262",
		"실전 맞춤 진짜 독일어":               "955731",
		"왕초보 영단어 1000":               "30",
		"월스트리트에서 통하는 영어":             "667062",
		"일상 영어 패턴 레시피":               "33",
		"톡톡 영어 1년 멤버십":               "472892",
		"톡톡 일본어 1일 멤버십":              "318007",
		"필사클럽":                       "724286",
		"필사클럽 노트(PDF)":               "859428",
		"필사클럽 노트(실물)":                "454333",
		"필사클럽 참가신청":                  "724286",
	}
}
