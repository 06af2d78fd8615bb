package api

type apiIndex struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

type errorResponse struct {
	Error string `json:"error"`
}
