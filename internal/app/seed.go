package app

import (
	"errors"
	"fmt"
	"log"

	"newsmill/internal/models"
	"newsmill/internal/services"

	"gorm.io/gorm"
)

// DemoProjectName names the project created by Seed
const DemoProjectName = "Demo News"

var demoSources = []struct {
	name, sourceType, url string
}{
	{"BBC World", "rss", "https://feeds.bbci.co.uk/news/world/rss.xml"},
	{"r/worldnews", "reddit", "https://www.reddit.com/r/worldnews/"},
}

// Seed creates a demo project with a few public sources for local
// development. Existing demo data is left alone.
func (a *App) Seed() (string, error) {
	var existing models.Project
	err := a.DB.Where("name = ?", DemoProjectName).First(&existing).Error
	if err == nil {
		log.Printf("🌱 Project %q already exists, nothing to seed", DemoProjectName)
		return "projects_created=0 sources_created=0", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to look up demo project: %w", err)
	}

	name := DemoProjectName
	project, err := a.Admin.CreateProject(services.ProjectInput{Name: &name})
	if err != nil {
		return "", err
	}
	log.Printf("✅ Created project %s (%s)", project.Name, project.ID)

	created := 0
	for _, src := range demoSources {
		srcName, srcType, srcURL := src.name, src.sourceType, src.url
		source, err := a.Admin.CreateSource(project.ID, services.SourceInput{
			Name:       &srcName,
			SourceType: &srcType,
			URL:        &srcURL,
		})
		if err != nil {
			log.Printf("❌ Failed to seed source %s: %v", srcName, err)
			continue
		}
		log.Printf("✅ Created source %s (%s)", source.Name, source.Type)
		created++
	}
	return fmt.Sprintf("projects_created=1 sources_created=%d", created), nil
}
