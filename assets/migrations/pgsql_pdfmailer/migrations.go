package pgsql_pdfmailer

import "github.com/yusufsyaifudin/pdfmailer/pkg/migration"

// Migrations list all migration in the order they must be applied.
func Migrations() []migration.Migrate {
	return []migration.Migrate{
		CreateUsersTable1696118400{},
		CreateDocumentsTable1696118460{},
		CreateDocumentRecipientsTable1696118520{},
	}
}
