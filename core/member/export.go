package member

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

var csvHeader = []string{
	"Nom", "Prénom", "Sexe", "Date de naissance", "Adresse", "Quartier", "Téléphone",
	"Email", "Fonction", "État civil", "Mpandray", "Faritra", "Sampana", "Date d'inscription",
}

// WriteCSV exports `members` in the given order, one row each.
func WriteCSV(w io.Writer, members []Member) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	for _, m := range members {
		var birth string
		if m.DateNaissance != nil {
			birth = m.DateNaissance.String()
		}
		mpandray := "Non"
		if m.Mpandray {
			mpandray = "Oui"
		}
		row := []string{
			m.Nom, m.Prenom, m.Sexe, birth,
			m.Adresse.String, m.Quartier.String, m.Telephone.String, m.Email.String,
			m.FonctionEglise.String, m.EtatCivil.String, mpandray, m.Faritra.String,
			m.SampanaName.String, m.DateInscription.String(),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
