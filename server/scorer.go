package server

// Score is the fixed-shape record the quality-scoring collaborator returns
// for a source repository. Each metric comes with the wall time spent
// computing it.
type Score struct {
	BusFactor                   float64 `json:"BusFactor"`
	BusFactorLatency            float64 `json:"BusFactorLatency"`
	Correctness                 float64 `json:"Correctness"`
	CorrectnessLatency          float64 `json:"CorrectnessLatency"`
	RampUp                      float64 `json:"RampUp"`
	RampUpLatency               float64 `json:"RampUpLatency"`
	ResponsiveMaintainer        float64 `json:"ResponsiveMaintainer"`
	ResponsiveMaintainerLatency float64 `json:"ResponsiveMaintainerLatency"`
	License                     float64 `json:"LicenseScore"`
	LicenseLatency              float64 `json:"LicenseScoreLatency"`
	NetScore                    float64 `json:"NetScore"`
	NetScoreLatency             float64 `json:"NetScoreLatency"`
}

// A Scorer rates the repository a package came from. Implementations talk
// to the source-repository host; none ships with the server.
type Scorer interface {
	Score(repo string) (Score, error)
}
