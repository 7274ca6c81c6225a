// Package salts removes counter-ion fragments from SMILES strings so the parent
// compound of a salt form can be looked up on its own.
package salts

import (
	"strconv"
	"strings"
)

//DefaultSalts are the fragments stripped when no definitions are given. They
//follow the usual salt list of cheminformatics toolkits: halides, alkali and
//alkaline earth ions, water/ammonia and the common acid counter-ions. Acids are
//listed in the hand written form and in the form PubChem answers with.
var DefaultSalts = []string{
	"[Cl-]", "[Br-]", "[I-]",
	"[Li+]", "[Na+]", "[K+]", "[Ca+2]", "[Mg+2]",
	"O", "N",
	"O[N+](=O)[O-]", "[N+](=O)(O)[O-]",
	"OP(=O)(O)O",
	"F[P-](F)(F)(F)(F)F",
	"OS(=O)(=O)O",
	"CS(=O)(=O)O",
	"Cc1ccc(cc1)S(=O)(=O)O", "CC1=CC=C(C=C1)S(=O)(=O)O",
	"CC(=O)O",
	"OC(=O)C(F)(F)F", "C(=O)(C(F)(F)F)O",
	"OC(=O)C=CC(=O)O", "C(=CC(=O)O)C(=O)O",
	"OC(=O)C(=O)O", "C(=O)(C(=O)O)O",
	"OC(=O)C(O)C(O)C(=O)O", "C(C(C(=O)O)O)(C(=O)O)O",
	"C1CCC(CC1)NC1CCCCC1",
}

//Remover strips fragments whose skeleton matches one of its salt definitions
type Remover struct {
	salts map[string]string
}

//NewRemover builds a remover from SMILES definitions, DefaultSalts when none are given
func NewRemover(definitions ...string) *Remover {
	if len(definitions) == 0 {
		definitions = DefaultSalts
	}
	r := &Remover{salts: make(map[string]string, len(definitions))}
	for _, d := range definitions {
		r.salts[Skeleton(d)] = d
	}
	return r
}

//Strip returns the SMILES without its salt fragments and the fragments removed.
//When every fragment is a salt the input is returned unchanged.
func (r *Remover) Strip(smiles string) (string, []string) {
	fragments := SplitFragments(smiles)
	if len(fragments) <= 1 {
		return smiles, nil
	}

	var kept, removed []string
	for _, f := range fragments {
		if r.IsSalt(f) {
			removed = append(removed, f)
			continue
		}
		kept = append(kept, f)
	}

	if len(kept) == 0 {
		return smiles, nil
	}
	return strings.Join(kept, "."), removed
}

//IsSalt reports whether a single fragment matches a salt definition
func (r *Remover) IsSalt(fragment string) bool {
	_, ok := r.salts[Skeleton(fragment)]
	return ok
}

//SplitFragments splits a SMILES into its disconnected components
func SplitFragments(smiles string) []string {
	var fragments []string
	depth := 0
	start := 0
	for i := 0; i < len(smiles); i++ {
		switch smiles[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '.':
			if depth == 0 {
				if i > start {
					fragments = append(fragments, smiles[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(smiles) {
		fragments = append(fragments, smiles[start:])
	}
	return fragments
}

//Skeleton normalizes a SMILES for comparison: bracket atoms become their bare
//element (isotopes, explicit H, charges and chirality dropped), directional bonds
//are removed and ring closures are renumbered in order of use. Atom case, bond
//orders and branches are kept. "[O-]C(=O)C" -> "OC(=O)C"
func Skeleton(smiles string) string {
	var b strings.Builder
	open := make(map[string]int)
	used := make(map[int]bool)

	for i := 0; i < len(smiles); i++ {
		c := smiles[i]
		switch {
		case c == '[':
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				end = len(smiles) - i
			}
			b.WriteString(bracketElement(smiles[i+1 : i+end]))
			i += end
		case c == '/' || c == '\\':
		case c == '%' && i+2 < len(smiles):
			b.WriteString(ringLabel(smiles[i:i+3], open, used))
			i += 2
		case c >= '0' && c <= '9':
			b.WriteString(ringLabel(string(c), open, used))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ringLabel closes an open ring or opens one on the lowest free number
func ringLabel(label string, open map[string]int, used map[int]bool) string {
	n, ok := open[label]
	if ok {
		delete(open, label)
		used[n] = false
	} else {
		n = 1
		for used[n] {
			n++
		}
		used[n] = true
		open[label] = n
	}
	if n < 10 {
		return strconv.Itoa(n)
	}
	return "%" + strconv.Itoa(n)
}

// bracketElement reads the element of a bracket atom body such as "13CH3",
// "Na+" or "nH", keeping the lower case of aromatic atoms
func bracketElement(body string) string {
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i >= len(body) {
		return ""
	}

	c := body[i]
	switch {
	case c >= 'A' && c <= 'Z':
		if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' {
			return body[i : i+2]
		}
		return string(c)
	case c >= 'a' && c <= 'z':
		if i+1 < len(body) && (body[i:i+2] == "se" || body[i:i+2] == "as" || body[i:i+2] == "te") {
			return body[i : i+2]
		}
		return string(c)
	case c == '*':
		return "*"
	}
	return ""
}
