package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"govdocs/identity"
	"govdocs/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Password is the plain-text password of every fixture user.
const Password = "password123"

// User creates an Active user with a complete profile: phone, address and
// one identity document.
func User(t testing.TB, db *gorm.DB, role identity.Role, name string) models.User {
	t.Helper()
	u := BareUser(t, db, role, name)
	require.NoError(t, db.Model(&u).Updates(map[string]interface{}{
		"phone":   "9876543210",
		"address": "12 MG Road, Pune",
	}).Error)
	u.Phone = "9876543210"
	u.Address = "12 MG Road, Pune"
	require.NoError(t, db.Create(&models.UserDocument{
		UserID:   u.ID,
		Label:    "Aadhaar",
		FileName: "aadhaar.pdf",
		FileKey:  fmt.Sprintf("profiles/%d/aadhaar.pdf", u.ID),
	}).Error)
	return u
}

// BareUser creates an Active user whose profile gate is still closed.
func BareUser(t testing.TB, db *gorm.DB, role identity.Role, name string) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.User{
		Name:        name,
		Email:       strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Role:        role,
		LoginStatus: models.LoginActive,
		Password:    string(hashed),
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Pair creates a category, one subcategory and the requirement lists for it.
func Pair(t testing.TB, db *gorm.DB, category, subcategory string, documents, fields []string) (models.Category, models.Subcategory) {
	t.Helper()
	c := models.Category{Name: category}
	require.NoError(t, db.Create(&c).Error)
	sc := models.Subcategory{CategoryID: c.ID, Name: subcategory}
	require.NoError(t, db.Create(&sc).Error)
	if documents != nil {
		require.NoError(t, db.Create(&models.RequiredDocumentSet{
			CategoryID: c.ID, SubcategoryID: sc.ID, Labels: datatypes.NewJSONType(documents),
		}).Error)
	}
	if fields != nil {
		require.NoError(t, db.Create(&models.RequiredFieldSet{
			CategoryID: c.ID, SubcategoryID: sc.ID, Labels: datatypes.NewJSONType(fields),
		}).Error)
	}
	return c, sc
}
