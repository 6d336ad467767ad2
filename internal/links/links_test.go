package links

import (
	"testing"

	"mixsafe-gateway/internal/chem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(a, b string) chem.Pair {
	return chem.Pair{Record: chem.Record{Chemical1: a, Chemical2: b}}
}

func TestNormalizeWholeTokens(t *testing.T) {
	a, err := New()
	require.NoError(t, err)

	cases := map[string]string{
		"SODIUM HYPOCHLORITE":        "bleach",
		"AMMONIA, ANHYDROUS":         "ammonia",
		"Ammonium Hydroxide":         "ammonia",
		"Glacial Acetic Acid":        "acid",
		"7681-52-9":                  "bleach",
		"Hydrogen Peroxide Solution": "peroxide",
		// substring of a token must not match
		"ammoniacal copper":      "ammoniacal copper",
		"Sodium  Chloride":       "sodium chloride",
		"peracetic acid":         "peracetic acid",
		"sulfuric acid (fuming)": "acid",
	}
	for in, want := range cases {
		assert.Equal(t, want, a.Normalize(in), in)
	}
}

func TestBleachAmmoniaBundle(t *testing.T) {
	a, err := New()
	require.NoError(t, err)

	bundle := a.Aggregate([]chem.Pair{pair("Sodium Hypochlorite", "Ammonia")}, nil)

	require.Len(t, bundle.SpecificLinks, 2)
	assert.Equal(t, "안전보건공단", bundle.SpecificLinks[0].Source)
	require.Len(t, bundle.MSDSLinks, 2)
	assert.Equal(t,
		"https://msds.kosha.or.kr/MSDSInfo/kcic/msdsSearch.do?menuId=13&msdsEname=Sodium+Hypochlorite",
		bundle.MSDSLinks[0].URL)
	assert.Len(t, bundle.GeneralResources, 3)
}

func TestAggregateDedup(t *testing.T) {
	a, err := New()
	require.NoError(t, err)

	bundle := a.Aggregate(
		[]chem.Pair{
			pair("Ammonia", "Bleach"),
			pair("Sodium Hypochlorite", "Acetic Acid"),
			pair("Hydrogen Peroxide", "Sulfuric Acid"),
		},
		[]chem.Pair{pair("bleach", "HYDROCHLORIC ACID")},
	)

	// bleach+ammonia (2), bleach+acid (1), peroxide+acid (1); the caution
	// pair repeats bleach+acid
	require.Len(t, bundle.SpecificLinks, 4)
	titles := map[string]int{}
	for _, l := range bundle.SpecificLinks {
		titles[l.Title+l.URL]++
	}
	for k, n := range titles {
		assert.Equal(t, 1, n, k)
	}

	var chemicals []string
	for _, m := range bundle.MSDSLinks {
		chemicals = append(chemicals, m.Chemical)
	}
	assert.Equal(t, []string{
		"Ammonia", "Bleach", "Sodium Hypochlorite", "Acetic Acid",
		"Hydrogen Peroxide", "Sulfuric Acid", "HYDROCHLORIC ACID",
	}, chemicals)
}

func TestAggregateEmptyStillHasGeneral(t *testing.T) {
	a, err := New()
	require.NoError(t, err)

	bundle := a.Aggregate(nil, nil)
	assert.NotNil(t, bundle.SpecificLinks)
	assert.NotNil(t, bundle.MSDSLinks)
	assert.Len(t, bundle.GeneralResources, 3)
}

func TestMSDSSearchURLEscapes(t *testing.T) {
	assert.Equal(t, msdsSearchURL+"AMMONIA%2C+ANHYDROUS", MSDSSearchURL(" AMMONIA, ANHYDROUS "))
}
