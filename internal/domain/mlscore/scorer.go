package mlscore

import (
	"fmt"
	"time"

	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

// HeuristicModelVersion is the model_version recorded on predictions
// made without a loadable classifier artifact.
const HeuristicModelVersion = "heuristic-v1"

// Classifier is a pluggable, pre-trained binary classifier predicting
// P(LLM would rate confidence >= 0.8) from a feature vector (spec §4.D).
// Implementations wrap whatever artifact format is in use; this package
// only depends on the interface.
type Classifier interface {
	// Version identifies the loaded artifact for MLPrediction.ModelVersion.
	Version() string
	// FeatureSchemaLen is the feature-vector length the artifact was
	// trained against; Scorer refuses to use a classifier whose schema
	// does not match FeatureCount.
	FeatureSchemaLen() int
	// Predict returns P(LLM would rate confidence >= 0.8) for one
	// feature vector, in [0,1].
	Predict(vector []float64) (float64, error)
}

// MLPrediction is the stage-D output (spec §3): a worthiness score plus
// the feature snapshot it was computed from, so it can later feed
// training-set accumulation.
type MLPrediction struct {
	PairFingerprint string
	LLMWorthiness   float64
	Confidence      float64
	Features        MLFeatures
	ModelVersion    string
	Explanation     string
}

// Config holds the stage-D threshold (spec §6: ml_threshold, default 0.3,
// config not compile-time).
type Config struct {
	Threshold float64
}

func DefaultConfig() Config {
	return Config{Threshold: 0.3}
}

// Scorer evaluates pairs with a loaded Classifier, falling back to the
// deterministic heuristic of spec §4.D when no classifier is supplied.
type Scorer struct {
	cfg        Config
	classifier Classifier
	extractor  *Extractor
}

// NewScorer builds a Scorer. classifier may be nil, in which case every
// prediction uses the heuristic fallback. A non-nil classifier whose
// FeatureSchemaLen() does not match FeatureCount is refused with an
// error, since using it would silently misalign the model contract
// (spec §4.D).
func NewScorer(cfg Config, classifier Classifier, extractor *Extractor) (*Scorer, error) {
	if classifier != nil && classifier.FeatureSchemaLen() != FeatureCount {
		return nil, fmt.Errorf("mlscore: classifier %s declares feature schema length %d, want %d",
			classifier.Version(), classifier.FeatureSchemaLen(), FeatureCount)
	}
	return &Scorer{cfg: cfg, classifier: classifier, extractor: extractor}, nil
}

// Score computes the MLPrediction for one filtered pair.
func (s *Scorer) Score(p *pair.MarketPair, now time.Time) (MLPrediction, error) {
	features := s.extractor.Extract(p, now)

	if s.classifier != nil {
		vector := features.ToVector()
		worthiness, err := s.classifier.Predict(vector)
		if err != nil {
			return MLPrediction{}, fmt.Errorf("mlscore: classifier predict: %w", err)
		}
		confidence := worthiness + 0.1
		if confidence > 0.9 {
			confidence = 0.9
		}
		return MLPrediction{
			PairFingerprint: p.Fingerprint(),
			LLMWorthiness:   worthiness,
			Confidence:      confidence,
			Features:        features,
			ModelVersion:    s.classifier.Version(),
			Explanation:     explain(features, worthiness),
		}, nil
	}

	worthiness := heuristicScore(features)
	return MLPrediction{
		PairFingerprint: p.Fingerprint(),
		LLMWorthiness:   worthiness,
		Confidence:      worthiness * 0.8,
		Features:        features,
		ModelVersion:    HeuristicModelVersion,
		Explanation:     "heuristic scoring (no ML model available)",
	}, nil
}

// Passes reports whether a prediction clears the configured ml_threshold.
func (s *Scorer) Passes(p MLPrediction) bool {
	return p.LLMWorthiness >= s.cfg.Threshold
}

// heuristicScore implements the spec §4.D fallback formula exactly:
// 0.4*text_sim + 0.3*min(spread/10%,1) + 0.2*category_match + 0.1*volume_ratio.
func heuristicScore(f MLFeatures) float64 {
	spreadTerm := f.PriceDifference / 0.10
	if spreadTerm > 1 {
		spreadTerm = 1
	}
	return 0.4*f.JaccardSimilarity + 0.3*spreadTerm + 0.2*f.CategoryMatch + 0.1*f.VolumeRatio
}

func explain(f MLFeatures, worthiness float64) string {
	driver := "text similarity"
	best := f.JaccardSimilarity
	if f.PriceDifference > best {
		driver, best = "price difference", f.PriceDifference
	}
	if f.CategoryMatch > best {
		driver, best = "category match", f.CategoryMatch
	}
	if f.PerSideLiquidityScore > best {
		driver = "liquidity"
	}
	return fmt.Sprintf("worthiness %.2f driven primarily by %s", worthiness, driver)
}
