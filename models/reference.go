package models

type Country struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Region is a state or province, scoped to a country.
type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
