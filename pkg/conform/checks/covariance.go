package checks

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

var errNoConvergence = errors.New("eigendecomposition did not converge")

type namedMatrix struct {
	field string
	m     cdm.Matrix
}

// covariances returns every matrix the covariance checks inspect, or a FAIL
// finding when one of them did not parse.
func covariances(code string, msg *cdm.Message) ([]namedMatrix, []conform.Finding) {
	fields := append(objectFields(cdm.FieldCovariance), cdm.FieldRelPosCov)
	if f := requireFields(code, msg, fields...); f != nil {
		return nil, f
	}

	out := []namedMatrix{
		{cdm.ObjectField(cdm.FieldPrimary, cdm.FieldCovariance), msg.Primary.Covariance},
		{cdm.ObjectField(cdm.FieldSecondary, cdm.FieldCovariance), msg.Secondary.Covariance},
	}
	if msg.HasRelPosCovariance() {
		out = append(out, namedMatrix{cdm.FieldRelPosCov, msg.RelPosCovariance})
	}
	return out, nil
}

// CovSymmetry fails when any matrix deviates from its transpose by more than
// the symmetry tolerance.
type CovSymmetry struct{}

func (c *CovSymmetry) Code() string { return rules.CodeCovSymmetry }
func (c *CovSymmetry) Name() string { return "Covariance Symmetry" }

func (c *CovSymmetry) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	matrices, fail := covariances(c.Code(), msg)
	if fail != nil {
		return fail, nil
	}

	tol := r.Covariance.SymmetryTol
	var overall float64
	perMatrix := make(map[string]any, len(matrices))
	var offending, overflowed []string
	for _, nm := range matrices {
		dev := maxAsymmetry(nm.m)
		perMatrix[nm.field] = dev
		if !finite(dev) {
			overflowed = append(overflowed, nm.field)
			continue
		}
		overall = math.Max(overall, dev)
		if dev > tol {
			offending = append(offending, nm.field)
		}
	}
	if len(overflowed) > 0 {
		return notFinite(c.Code(), map[string]any{
			"not_finite": overflowed,
			"per_matrix": perMatrix,
			"tolerance":  tol,
		}), nil
	}

	details := map[string]any{
		"max_deviation": overall,
		"per_matrix":    perMatrix,
		"tolerance":     tol,
	}
	if len(offending) > 0 {
		details["asymmetric"] = offending
		return []conform.Finding{conform.Fail(c.Code(),
			fmt.Sprintf("Covariance not symmetric within tolerance: %s.", strings.Join(offending, ", ")),
			details)}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "Covariance matrices are symmetric within tolerance.", details)}, nil
}

func maxAsymmetry(m cdm.Matrix) float64 {
	var dev float64
	for i := range m {
		for j := i + 1; j < len(m); j++ {
			dev = math.Max(dev, math.Abs(m[i][j]-m[j][i]))
		}
	}
	return dev
}

// CovPSD fails when the symmetrised matrix has an eigenvalue below -psd_eps.
// An eigenvalue of exactly -psd_eps passes.
type CovPSD struct{}

func (c *CovPSD) Code() string { return rules.CodeCovPSD }
func (c *CovPSD) Name() string { return "Covariance Positive Semi-Definite" }

func (c *CovPSD) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	matrices, fail := covariances(c.Code(), msg)
	if fail != nil {
		return fail, nil
	}

	eps := r.Covariance.PSDEps
	overall := math.Inf(1)
	perMatrix := make(map[string]any, len(matrices))
	var offending, overflowed []string
	for _, nm := range matrices {
		minEig, err := minEigenvalue(nm.m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", nm.field, err)
		}
		perMatrix[nm.field] = minEig
		if !finite(minEig) {
			overflowed = append(overflowed, nm.field)
			continue
		}
		overall = math.Min(overall, minEig)
		if minEig < -eps {
			offending = append(offending, nm.field)
		}
	}

	if len(overflowed) > 0 {
		return notFinite(c.Code(), map[string]any{
			"not_finite": overflowed,
			"per_matrix": perMatrix,
			"psd_eps":    eps,
		}), nil
	}

	details := map[string]any{
		"min_eigenvalue": overall,
		"per_matrix":     perMatrix,
		"psd_eps":        eps,
	}
	if len(offending) > 0 {
		details["not_psd"] = offending
		return []conform.Finding{conform.Fail(c.Code(),
			fmt.Sprintf("Covariance not positive semi-definite: %s.", strings.Join(offending, ", ")),
			details)}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "Covariance matrices are positive semi-definite within tolerance.", details)}, nil
}

// minEigenvalue returns the smallest eigenvalue of (m + mᵀ)/2.
func minEigenvalue(m cdm.Matrix) (float64, error) {
	n := m.Dim()
	data := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data = append(data, m[i][j]/2+m[j][i]/2)
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(n, data), false); !ok {
		return 0, errNoConvergence
	}
	return es.Values(nil)[0], nil
}

// CovStd bounds the standard deviations on the covariance diagonals. Position
// terms are checked against std_*_m, velocity terms of 6x6 matrices against
// velocity_std_*_mps. A negative variance fails outright.
type CovStd struct{}

func (c *CovStd) Code() string { return rules.CodeCovStd }
func (c *CovStd) Name() string { return "Covariance Standard Deviations" }

func (c *CovStd) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	matrices, fail := covariances(c.Code(), msg)
	if fail != nil {
		return fail, nil
	}

	cr := r.Covariance
	var (
		maxPos, maxVel float64
		hasVelocity    bool
		negative       []string
	)
	perMatrix := make(map[string]any, len(matrices))
	for _, nm := range matrices {
		var matrixMax float64
		for i := 0; i < nm.m.Dim(); i++ {
			v := nm.m[i][i]
			if v < 0 {
				negative = append(negative, fmt.Sprintf("%s[%d][%d]", nm.field, i, i))
				continue
			}
			std := math.Sqrt(v)
			if i < 3 {
				maxPos = math.Max(maxPos, std)
				matrixMax = math.Max(matrixMax, std)
			} else {
				hasVelocity = true
				maxVel = math.Max(maxVel, std)
			}
		}
		perMatrix[nm.field] = matrixMax
	}

	details := map[string]any{
		"max_position_std_m": maxPos,
		"std_warn_m":         cr.StdWarnM,
		"std_fail_m":         cr.StdFailM,
		"per_matrix":         perMatrix,
	}
	if hasVelocity {
		details["max_velocity_std_mps"] = maxVel
		details["velocity_std_warn_mps"] = cr.VelocityStdWarnMPS
		details["velocity_std_fail_mps"] = cr.VelocityStdFailMPS
	}

	switch {
	case len(negative) > 0:
		details["negative_diagonals"] = negative
		return []conform.Finding{conform.Fail(c.Code(), "Covariance diagonal has negative variance.", details)}, nil
	case maxPos > cr.StdFailM || (hasVelocity && maxVel > cr.VelocityStdFailMPS):
		return []conform.Finding{conform.Fail(c.Code(), "Covariance uncertainty implausibly large.", details)}, nil
	case maxPos > cr.StdWarnM || (hasVelocity && maxVel > cr.VelocityStdWarnMPS):
		return []conform.Finding{conform.Warn(c.Code(), "Large covariance uncertainty (review).", details)}, nil
	default:
		return []conform.Finding{conform.Pass(c.Code(), "Covariance standard deviations within bounds.", details)}, nil
	}
}
