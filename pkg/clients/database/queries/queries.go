package queries

import (
	_ "embed"
)

var (
	//go:embed create_builds.sql
	CreateBuilds string
)
