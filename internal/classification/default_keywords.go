package classification

// DefaultTables returns the built-in keyword tables, evaluated top-down.
func DefaultTables() Tables {
	return Tables{
		Tiers: []TierTable{
			// Totals with all taxes included, or "net to pay" wording.
			{
				Name:  "supreme",
				Level: TierSupreme,
				Phrases: []string{
					"total ttc", "ttc", "net a payer", "net à payer", "total à payer", "total a payer",
					"net à régler", "net a régler", "à payer", "a payer", "total à régler", "total a régler",
					"net a payer en €", "net à payer en €", "montant ttc", "total eur ttc", "total eur",
					"a votre debit", "total net a payer", "total net ttc", "net a payer ttc",
					"net a payer ttc en euros", "net à payer ttc en euros",
				},
			},
			{
				Name:  "strong",
				Level: TierStrong,
				Phrases: []string{
					"total due", "amount due", "balance due", "total facturado", "total factura",
					"total general", "amount", "montant", "importe", "sum", "total:",
					"payer", "regler",
				},
			},
			// Tax-excluded subtotals.
			{
				Name:  "secondary",
				Level: TierLow,
				Phrases: []string{
					"total ht", "net ht", "hors taxe", "total net ht", "ht", "total ht net", "total marchandise",
				},
			},
			{
				Name:    "generic",
				Level:   TierLow,
				Phrases: []string{"total", "net"},
			},
		},
		Subtotal: []string{
			"total ht", "net ht", "hors taxe", "total net ht", "ht", "total ht net", "total marchandise",
		},
		Ignore: []string{
			"poids", "weight", "kg", "volume", "qty", "quantité", "quantity", "qte", "quantite",
			"articles", "items", "unité", "unités", "indemnité", "pénalité",
			"intérêt", "intérêts", "penalite", "indemnite", "interet",
			"iban", "siret", "siren", "ean", "bic", "swift", "rib", "account", "compte", "no.", "ref",
			"colis", "nb colis", "livraison", "capital", "social", "société", "page", "of", "sur",
			"bord", "bordereau", "commande", "réf", "noël", "noel", "échéance", "echeance",
			"escompte", "remise", "p.u.", "taux", "tva", "tél", "tel", "route", "rue", "avenue", "adresse",
		},
		Identifier: []string{
			"iban", "siret", "siren", "ean", "bic", "swift", "rib", "compte", "account",
			"ref", "n°", "page", "of", "sur", "bord", "commande", "réf",
		},
		Currency: []string{"€", "$", "£", "chf"},
	}
}
