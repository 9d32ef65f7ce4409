// Package regulations holds the concrete criterion evaluators: water law,
// Natura 2000, environmental assessment, PAC conditionality, tree
// alignments, protected species and the single-procedure family. Each
// evaluator registers itself in the default registry under a namespaced
// slug, so department configs can reference them by name.
package regulations

import (
	"strconv"

	"github.com/envergo/moulinette/catalog"
	"github.com/envergo/moulinette/moulinette"
)

func register(slug string, c moulinette.Constructor) {
	moulinette.DefaultRegistry.MustRegister(slug, c)
}

// pair and triple key the two- and three-dimensional code matrices.
type pair [2]string

// constant always emits the same result code. Several rules reduce to
// this: "requires verification", "subject by default".
type constant struct {
	slug   string
	code   string
	matrix moulinette.ResultMatrix
}

func (c constant) Slug() string { return c.slug }

func (c constant) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	return evaluation(c.code, c.matrix, nil)
}

// newConstant builds a constructor for a constant evaluator. The settings
// key "result_code" overrides the default code, the way admin-tunable
// constant criteria work.
func newConstant(slug, code string, matrix moulinette.ResultMatrix) moulinette.Constructor {
	return func(settings map[string]any) (moulinette.Evaluator, error) {
		if v, ok := settings["result_code"].(string); ok && v != "" {
			code = v
		}
		return constant{slug: slug, code: code, matrix: matrix}, nil
	}
}

// evaluation resolves a result code through the matrix and assembles the
// criterion record.
func evaluation(code string, matrix moulinette.ResultMatrix, context map[string]any) (moulinette.Evaluation, error) {
	r, err := matrix.Resolve(code)
	if err != nil {
		return moulinette.Evaluation{}, err
	}
	return moulinette.Evaluation{ResultCode: code, Result: r, Context: context}, nil
}

// boolValue reads a catalog key as a boolean, treating absence as false.
func boolValue(c *catalog.Catalog, key string) bool {
	b, err := c.Bool(key)
	if err != nil {
		return false
	}
	return b
}

// floatValue reads a catalog key as a number. Form values arrive as
// strings and are parsed; absence or garbage reads as zero.
func floatValue(c *catalog.Catalog, key string) float64 {
	v, err := c.Get(key)
	if err != nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func init() {
	register("loi_sur_leau.autres_rubriques", newConstant(
		"loi_sur_leau.autres_rubriques", "a_verifier",
		moulinette.ResultMatrix{"a_verifier": moulinette.ResultAVerifier},
	))
	register("evalenv.autres_rubriques", newConstant(
		"evalenv.autres_rubriques", "non_disponible",
		moulinette.ResultMatrix{"non_disponible": moulinette.ResultNonDisponible},
	))
	register("code_rural.code_rural", newConstant(
		"code_rural.code_rural", "a_verifier",
		moulinette.ResultMatrix{"a_verifier": moulinette.ResultAVerifier},
	))
	register("urbanisme_haie.urbanisme_haie", newConstant(
		"urbanisme_haie.urbanisme_haie", "a_verifier",
		moulinette.ResultMatrix{"a_verifier": moulinette.ResultAVerifier},
	))
	register("dep.dep", newConstant(
		"dep.dep", "soumis",
		moulinette.ResultMatrix{"soumis": moulinette.ResultSoumis},
	))
}
