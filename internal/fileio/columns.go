package fileio

import (
	"regexp"
	"sort"
	"strings"
)

var reHeaderJunk = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var (
	nameColumns = []string{"name", "product name", "product", "title", "наименование"}
	idColumns   = []string{"id", "sku", "code", "url", "артикул"}
	normColumns = []string{"norm_name", "normalized name"}
)

// нормализуем имя колонки: нижний регистр, убираем служ.символы/множественные пробелы/ё→е
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ", "ё", "е").Replace(s)
	s = reHeaderJunk.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveKey ищет реальный ключ в записи по желаемому имени.
// want поддерживает варианты через "|"; пустой want -> defaults.
// Returns "" when nothing matches.
func resolveKey(rec map[string]string, want string, defaults ...string) string {
	var alts []string
	for _, a := range strings.Split(want, "|") {
		if a = strings.TrimSpace(a); a != "" {
			alts = append(alts, a)
		}
	}
	if len(alts) == 0 {
		alts = defaults
	}
	if len(alts) == 0 {
		return ""
	}

	// 1) точное совпадение (как есть)
	for _, a := range alts {
		if _, ok := rec[a]; ok {
			return a
		}
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nAlts := make([]string, len(alts))
	for i, a := range alts {
		nAlts[i] = normHeaderKey(a)
	}

	// 2) точное по нормализованному, в порядке альтернатив
	for _, n := range nAlts {
		for _, k := range keys {
			if normHeaderKey(k) == n {
				return k
			}
		}
	}

	// 3) частичное: want ⊂ key; ранние альтернативы весят больше
	bestKey, bestScore := "", 0
	for _, k := range keys {
		nk := normHeaderKey(k)
		for i, n := range nAlts {
			if n == "" || !partialMatch(nk, n) {
				continue
			}
			if score := (len(nAlts)-i)*100 + len(n); score > bestScore {
				bestScore, bestKey = score, k
			}
		}
	}
	return bestKey
}

// короткие варианты (id, sku) только целым словом: "paid" не id
func partialMatch(key, alt string) bool {
	if len([]rune(alt)) <= 3 {
		return strings.Contains(" "+key+" ", " "+alt+" ")
	}
	return strings.Contains(key, alt)
}
