package topaz

// VideoModel is one enhancement model family with its selectable
// option codes.
type VideoModel struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// VideoModels lists the model families accepted by the video API, in
// presentation order.
var VideoModels = []VideoModel{
	{Name: "Proteus", Options: []string{"prob-4"}},
	{Name: "Artemis", Options: []string{"ahq-12", "amq-13", "alq-13", "alqs-2", "amqs-2", "aaa-9"}},
	{Name: "Nyx", Options: []string{"nyx-3", "nxf-1"}},
	{Name: "Rhea", Options: []string{"rhea-1"}},
	{Name: "Gaia", Options: []string{"ghq-5", "gcg-5"}},
	{Name: "Theia", Options: []string{"thd-3", "thf-4"}},
	{Name: "Dione", Options: []string{"ddv-3", "dtd-4", "dtds-2", "dtv-4", "dtvs-2"}},
	{Name: "Iris", Options: []string{"Iris-3"}},
	{Name: "Themis", Options: []string{"thm-2"}},
	{Name: "Apollo", Options: []string{"apo-8", "apf-2"}},
	{Name: "Chronos", Options: []string{"chr-2", "chf-3"}},
}

// ImageModels lists the synchronous image enhancement models.
var ImageModels = []string{
	"Standard V2",
	"Low Resolution V2",
	"CGI",
	"High Fidelity V2",
	"Text Refine",
}

// frame interpolation families honor an explicit output frame rate
var frameInterpolating = map[string]bool{
	"Apollo":  true,
	"Chronos": true,
}

// FindVideoModel looks a model family up by name.
func FindVideoModel(name string) (VideoModel, bool) {
	for _, m := range VideoModels {
		if m.Name == name {
			return m, true
		}
	}
	return VideoModel{}, false
}

// SupportsFrameRateTarget reports whether the model family honors an
// explicit output frame rate.
func SupportsFrameRateTarget(model string) bool {
	return frameInterpolating[model]
}

// ValidImageModel reports whether the name is a known image model.
func ValidImageModel(name string) bool {
	for _, m := range ImageModels {
		if m == name {
			return true
		}
	}
	return false
}
