package salts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkeleton(t *testing.T) {
	tests := []struct {
		smiles   string
		skeleton string
	}{
		{"CC(=O)[O-]", "CC(=O)O"},
		{"[Na+]", "Na"},
		{"[Cl-]", "Cl"},
		{"[NH4+]", "N"},
		{"c1cc[nH]c1", "c1ccnc1"},
		{"[13CH3]C", "CC"},
		{"N[C@@H](C)C(=O)O", "NC(C)C(=O)O"},
		{"C(=C/C(=O)O)\\C(=O)O", "C(=CC(=O)O)C(=O)O"},
		{"C1CCC(CC1)NC2CCCCC2", "C1CCC(CC1)NC1CCCCC1"},
		{"C1CC2CCC1C2", "C1CC2CCC1C2"},
		{"C%12CC%12", "C1CC1"},
		{"c1cc[se]c1", "c1ccsec1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.skeleton, Skeleton(tt.smiles), tt.smiles)
	}
}

func TestSplitFragments(t *testing.T) {
	assert.Equal(t, []string{"CCO"}, SplitFragments("CCO"))
	assert.Equal(t, []string{"C[NH3+]", "[Cl-]"}, SplitFragments("C[NH3+].[Cl-]"))
	assert.Equal(t, []string{"C", "O"}, SplitFragments("C..O"))
	assert.Empty(t, SplitFragments(""))
}

func TestStrip(t *testing.T) {
	r := NewRemover()

	tests := []struct {
		name     string
		smiles   string
		stripped string
		removed  []string
	}{
		{
			name:     "sodium salt",
			smiles:   "CC(=O)OC1=CC=CC=C1C(=O)[O-].[Na+]",
			stripped: "CC(=O)OC1=CC=CC=C1C(=O)[O-]",
			removed:  []string{"[Na+]"},
		},
		{
			name:     "hydrochloride and water",
			smiles:   "CN1CCC[C@H]1c1cccnc1.Cl.O",
			stripped: "CN1CCC[C@H]1c1cccnc1",
			removed:  []string{"Cl", "O"},
		},
		{
			name:     "mesylate",
			smiles:   "CS(=O)(=O)O.CC1=C(C=C(C=C1)NC(=O)C2=CC=C(C=C2)CN3CCN(CC3)C)NC4=NC=CC(=N4)C5=CN=CC=C5",
			stripped: "CC1=C(C=C(C=C1)NC(=O)C2=CC=C(C=C2)CN3CCN(CC3)C)NC4=NC=CC(=N4)C5=CN=CC=C5",
			removed:  []string{"CS(=O)(=O)O"},
		},
		{
			name:     "no salt",
			smiles:   "CC(=O)OC1=CC=CC=C1C(=O)O",
			stripped: "CC(=O)OC1=CC=CC=C1C(=O)O",
		},
		{
			name:     "everything is a salt",
			smiles:   "[Na+].[Cl-]",
			stripped: "[Na+].[Cl-]",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			stripped, removed := r.Strip(tt.smiles)
			assert.Equal(t, tt.stripped, stripped)
			assert.Equal(t, tt.removed, removed)
		})
	}
}

func TestStrip_SameFormulaIsNotASalt(t *testing.T) {
	r := NewRemover()

	// diphenylamine has the heavy atoms of dicyclohexylamine
	paracetamolMix := "CC(=O)Nc1ccc(O)cc1.c1ccc(cc1)Nc1ccccc1"
	stripped, removed := r.Strip(paracetamolMix)
	assert.Equal(t, paracetamolMix, stripped)
	assert.Empty(t, removed)

	// benzylsulfonic acid has the heavy atoms of tosylic acid
	assert.False(t, r.IsSalt("c1ccc(cc1)CS(=O)(=O)O"))
	assert.True(t, r.IsSalt("Cc1ccc(cc1)S(=O)(=O)O"))
	assert.True(t, r.IsSalt("C1CCC(CC1)NC2CCCCC2"))
}

func TestStrip_PubChemForms(t *testing.T) {
	r := NewRemover()

	tests := []struct {
		smiles   string
		stripped string
	}{
		{"CC1=CC=C(C=C1)S(=O)(=O)O.CN1CCC[C@H]1C2=CN=CC=C2", "CN1CCC[C@H]1C2=CN=CC=C2"},
		{"C(=C/C(=O)O)\\C(=O)O.CN1CCC[C@H]1C2=CN=CC=C2", "CN1CCC[C@H]1C2=CN=CC=C2"},
		{"C(=O)(C(F)(F)F)O.CN1CCC[C@H]1C2=CN=CC=C2", "CN1CCC[C@H]1C2=CN=CC=C2"},
		{"CC(=O)[O-].CN1CCC[C@H]1C2=CN=CC=C2", "CN1CCC[C@H]1C2=CN=CC=C2"},
	}
	for _, tt := range tests {
		stripped, removed := r.Strip(tt.smiles)
		assert.Equal(t, tt.stripped, stripped, tt.smiles)
		assert.Len(t, removed, 1, tt.smiles)
	}
}

func TestCustomDefinitions(t *testing.T) {
	r := NewRemover("[Na+]")
	assert.True(t, r.IsSalt("[Na+]"))
	assert.False(t, r.IsSalt("[Cl-]"))

	stripped, _ := r.Strip("C[NH3+].[Cl-]")
	assert.Equal(t, "C[NH3+].[Cl-]", stripped)
}
