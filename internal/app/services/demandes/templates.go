package demandes

import (
	"fmt"
	"strings"

	"github.com/agglo-acv/demande-service/internal/app/domain/demande"
)

// message is one composed notification.
type message struct {
	To      string
	Subject string
	HTML    string
}

func validationUserMessage(d demande.Demande, comment, suiviURL string) message {
	var b strings.Builder
	b.WriteString("<b>Votre demande a été validée.</b><br>")
	fmt.Fprintf(&b, "<b>Intitulé :</b> %s<br>", d.Intitule)
	fmt.Fprintf(&b, "<b>Date :</b> %s<br>", d.DateDemande)
	if comment != "" {
		fmt.Fprintf(&b, "<b>Commentaire de l'administrateur :</b> %s<br>", comment)
	}
	fmt.Fprintf(&b, "<br>Vous pouvez suivre l'évolution de votre demande sur la plateforme en cliquant sur ce lien : <a href=%q>Suivre mes demandes</a>", suiviURL)

	return message{
		To:      d.Email,
		Subject: "Votre demande a été validée : " + d.Intitule,
		HTML:    b.String(),
	}
}

func validationAdminMessage(d demande.Demande, comment, adminEmail string) message {
	var b strings.Builder
	b.WriteString("<b>Statut modifié sur une demande</b><br>")
	fmt.Fprintf(&b, "<b>Intitulé :</b> %s<br>", d.Intitule)
	fmt.Fprintf(&b, "<b>Responsable :</b> %s<br>", d.Responsable)
	fmt.Fprintf(&b, "<b>Email demandeur :</b> %s<br>", d.Email)
	b.WriteString("<b>Nouveau statut :</b> validée<br>")
	fmt.Fprintf(&b, "<b>Date :</b> %s<br>", d.DateDemande)
	if comment != "" {
		fmt.Fprintf(&b, "<b>Commentaire admin :</b> %s<br>", comment)
	}

	return message{
		To:      adminEmail,
		Subject: "Statut de demande validée : " + d.Intitule,
		HTML:    b.String(),
	}
}

func rejectionUserMessage(d demande.Demande) message {
	var b strings.Builder
	b.WriteString("<b>Votre demande a été refusée/annulée.</b><br>")
	fmt.Fprintf(&b, "<b>Intitulé :</b> %s<br>", d.Intitule)
	fmt.Fprintf(&b, "<b>Date :</b> %s<br>", d.DateDemande)
	if d.CommentaireAdmin != "" {
		fmt.Fprintf(&b, "<b>Commentaire de l'administrateur :</b> %s<br>", d.CommentaireAdmin)
	}
	b.WriteString("<br>Pour toute question, contactez l'administration.")

	return message{
		To:      d.Email,
		Subject: "Votre demande a été refusée/annulée : " + d.Intitule,
		HTML:    b.String(),
	}
}

func rejectionAdminMessage(d demande.Demande, adminEmail string) message {
	var b strings.Builder
	b.WriteString("<b>Statut modifié sur une demande</b><br>")
	fmt.Fprintf(&b, "<b>Intitulé :</b> %s<br>", d.Intitule)
	fmt.Fprintf(&b, "<b>Responsable :</b> %s<br>", d.Responsable)
	b.WriteString("<b>Nouveau statut :</b> annulée<br>")
	fmt.Fprintf(&b, "<b>Date :</b> %s<br>", d.DateDemande)
	if d.CommentaireAdmin != "" {
		fmt.Fprintf(&b, "<b>Commentaire admin :</b> %s<br>", d.CommentaireAdmin)
	}

	return message{
		To:      adminEmail,
		Subject: "Statut de demande refusée/annulée : " + d.Intitule,
		HTML:    b.String(),
	}
}

func cancellationUserMessage(d demande.Demande) message {
	var b strings.Builder
	b.WriteString("<b>Votre demande a été annulée.</b><br>")
	fmt.Fprintf(&b, "<b>Intitulé :</b> %s<br>", d.Intitule)
	fmt.Fprintf(&b, "<b>Date :</b> %s<br>", d.DateDemande)

	return message{
		To:      d.Email,
		Subject: "Votre demande a été annulée : " + d.Intitule,
		HTML:    b.String(),
	}
}

func cancellationAdminMessage(d demande.Demande, adminEmail string) message {
	var b strings.Builder
	b.WriteString("<b>Une demande a été annulée</b><br>")
	fmt.Fprintf(&b, "<b>Intitulé :</b> %s<br>", d.Intitule)
	fmt.Fprintf(&b, "<b>Responsable :</b> %s<br>", d.Responsable)
	fmt.Fprintf(&b, "<b>Email :</b> %s<br>", d.Email)
	fmt.Fprintf(&b, "<b>Date :</b> %s<br>", d.DateDemande)

	return message{
		To:      adminEmail,
		Subject: "Demande annulée : " + d.Intitule,
		HTML:    b.String(),
	}
}
