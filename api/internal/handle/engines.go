package handle

import "net/http"

type EngineInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type EnginesResponse struct {
	Default string       `json:"default"`
	Engines []EngineInfo `json:"engines"`
}

func (h *Handle) Engines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	engs := h.rec.Engines()
	out := EnginesResponse{Default: engs.DefaultName(), Engines: []EngineInfo{}}
	for _, name := range engs.Names() {
		e, _ := engs.GetEngine(name)
		out.Engines = append(out.Engines, EngineInfo{Name: name, Model: e.GetModel()})
	}
	writeJSON(w, http.StatusOK, out)
}
