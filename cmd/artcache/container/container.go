package container

import (
	"github.com/kitgore/lyrictype-sub002/common/bootstrap"
	"github.com/kitgore/lyrictype-sub002/common/clients"
	"github.com/kitgore/lyrictype-sub002/common/imagecache"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Clients
	Processor *clients.ProcessorClient

	// Services
	Images *imagecache.Service
}

// NewContainer initializes all services once
func NewContainer(components *bootstrap.Components) *Container {
	processor := clients.NewProcessorClient(
		components.Config.Processor.URL,
		components.Config.Processor.Timeout,
		components.Logger,
	)

	images := imagecache.New(components.Store, processor, components.Logger)

	return &Container{
		Components: components,
		Processor:  processor,
		Images:     images,
	}
}
