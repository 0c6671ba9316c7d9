package worker

import (
	"github.com/techmengg/wnreader/internal/model"
)

type WorkPool interface {
	Push(job model.ImportJob)
}
