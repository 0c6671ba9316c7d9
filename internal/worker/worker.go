package worker

import (
	"github.com/techmengg/wnreader/internal/model"
)

type Worker interface {
	Run(c <-chan model.ImportJob)
}
