package memory_test

import (
	"testing"

	"github.com/warp/course-settlement/settlement"
	"github.com/warp/course-settlement/store/memory"
	"github.com/warp/course-settlement/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) settlement.Store {
		return memory.NewMemory()
	})
}
