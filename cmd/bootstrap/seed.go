package bootstrap

import (
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// seedDevelopmentData gives the in-memory store a few clients and products,
// which are otherwise owned by the registration and catalog services.
func seedDevelopmentData(store *memory.Store, log *logrus.Logger) {
	clients := []entity.Client{
		{FullName: "Ana Souza", Phone: "+55 11 90000-0001"},
		{FullName: "Bruno Lima", Phone: "+55 11 90000-0002"},
		{FullName: "Carla Mendes", Phone: "+55 11 90000-0003"},
	}
	for _, c := range clients {
		c = store.AddClient(c)
		log.Debugf("Seeded client %s (%s)", c.FullName, c.ID)
	}

	products := []entity.Product{
		{Name: "Consultation", Type: "service", Price: decimal.RequireFromString("150.00")},
		{Name: "Vaccine dose", Type: "medication", Price: decimal.RequireFromString("89.90")},
		{Name: "Bandage kit", Type: "supply", Price: decimal.RequireFromString("12.50")},
	}
	for _, p := range products {
		p = store.AddProduct(p)
		log.Debugf("Seeded product %s (%s)", p.Name, p.ID)
	}

	log.Infof("Seeded %d clients and %d products into memory store", len(clients), len(products))
}
