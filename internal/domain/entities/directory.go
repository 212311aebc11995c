package entities

// Status is the lifecycle flag carried by every directory record. Values are
// stored upper-case, matching the directory's case normalization.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// User is a registered passenger, keyed by firebaseUserId.
type User struct {
	FirebaseUserID string `json:"firebase_user_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ICNumber       string `json:"ic_number"`
	StudentID      string `json:"student_id"`
	Phone          string `json:"phone"`
	Status         Status `json:"status"`
}

// Fields returns the stored form of the user.
func (u User) Fields() map[string]any {
	return map[string]any{
		"firebaseUserId": u.FirebaseUserID,
		"name":           u.Name,
		"email":          u.Email,
		"icNumber":       u.ICNumber,
		"studentId":      u.StudentID,
		"phone":          u.Phone,
		"status":         string(u.Status),
	}
}

// UserFromFields reads a stored user.
func UserFromFields(m map[string]any) User {
	return User{
		FirebaseUserID: fieldString(m, "firebaseUserId"),
		Name:           fieldString(m, "name"),
		Email:          fieldString(m, "email"),
		ICNumber:       fieldString(m, "icNumber"),
		StudentID:      fieldString(m, "studentId"),
		Phone:          fieldString(m, "phone"),
		Status:         Status(fieldString(m, "status")),
	}
}

// Driver is a user approved to offer rides, keyed by drivingId (the
// 12-digit licence number).
type Driver struct {
	DrivingID      string `json:"driving_id"`
	FirebaseUserID string `json:"firebase_user_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	CarPlate       string `json:"car_plate"`
	StudentID      string `json:"student_id"`
	Status         Status `json:"status"`
}

// IsActive reports whether the driver may currently take rides.
func (d Driver) IsActive() bool {
	return d.Status == StatusActive
}

// Fields returns the stored form of the driver.
func (d Driver) Fields() map[string]any {
	return map[string]any{
		"drivingId":      d.DrivingID,
		"firebaseUserId": d.FirebaseUserID,
		"name":           d.Name,
		"email":          d.Email,
		"carPlate":       d.CarPlate,
		"studentId":      d.StudentID,
		"status":         string(d.Status),
	}
}

// DriverFromFields reads a stored driver.
func DriverFromFields(m map[string]any) Driver {
	return Driver{
		DrivingID:      fieldString(m, "drivingId"),
		FirebaseUserID: fieldString(m, "firebaseUserId"),
		Name:           fieldString(m, "name"),
		Email:          fieldString(m, "email"),
		CarPlate:       fieldString(m, "carPlate"),
		StudentID:      fieldString(m, "studentId"),
		Status:         Status(fieldString(m, "status")),
	}
}

// Vehicle is a registered car, keyed by its registration number.
type Vehicle struct {
	RegistrationNumber string `json:"registration_number"`
	Model              string `json:"model"`
	Colour             string `json:"colour"`
	OwnerDrivingID     string `json:"owner_driving_id"`
	OwnerEmail         string `json:"owner_email"`
	Status             Status `json:"status"`
}

// Fields returns the stored form of the vehicle.
func (v Vehicle) Fields() map[string]any {
	return map[string]any{
		"registrationNumber": v.RegistrationNumber,
		"model":              v.Model,
		"colour":             v.Colour,
		"ownerDrivingId":     v.OwnerDrivingID,
		"ownerEmail":         v.OwnerEmail,
		"status":             string(v.Status),
	}
}

// VehicleFromFields reads a stored vehicle.
func VehicleFromFields(m map[string]any) Vehicle {
	return Vehicle{
		RegistrationNumber: fieldString(m, "registrationNumber"),
		Model:              fieldString(m, "model"),
		Colour:             fieldString(m, "colour"),
		OwnerDrivingID:     fieldString(m, "ownerDrivingId"),
		OwnerEmail:         fieldString(m, "ownerEmail"),
		Status:             Status(fieldString(m, "status")),
	}
}

// Admin is a staff account that manages one admin group.
type Admin struct {
	AdminID string `json:"admin_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	StaffID string `json:"staff_id"`
	GroupID string `json:"group_id"`
	Status  Status `json:"status"`
}

// Fields returns the stored form of the admin.
func (a Admin) Fields() map[string]any {
	return map[string]any{
		"adminId": a.AdminID,
		"name":    a.Name,
		"email":   a.Email,
		"staffId": a.StaffID,
		"groupId": a.GroupID,
		"status":  string(a.Status),
	}
}

// AdminFromFields reads a stored admin.
func AdminFromFields(m map[string]any) Admin {
	return Admin{
		AdminID: fieldString(m, "adminId"),
		Name:    fieldString(m, "name"),
		Email:   fieldString(m, "email"),
		StaffID: fieldString(m, "staffId"),
		GroupID: fieldString(m, "groupId"),
		Status:  Status(fieldString(m, "status")),
	}
}

// AdminGroup is a named set of users managed by one or more admins, keyed
// by groupId. MemberIDs hold firebaseUserIds.
type AdminGroup struct {
	GroupID   string   `json:"group_id"`
	GroupName string   `json:"group_name"`
	AdminIDs  []string `json:"admin_ids"`
	MemberIDs []string `json:"member_ids"`
	Status    Status   `json:"status"`
}

// Fields returns the stored form of the group.
func (g AdminGroup) Fields() map[string]any {
	return map[string]any{
		"groupId":   g.GroupID,
		"groupName": g.GroupName,
		"adminIds":  append([]string(nil), g.AdminIDs...),
		"memberIds": append([]string(nil), g.MemberIDs...),
		"status":    string(g.Status),
	}
}

// AdminGroupFromFields reads a stored group.
func AdminGroupFromFields(m map[string]any) AdminGroup {
	return AdminGroup{
		GroupID:   fieldString(m, "groupId"),
		GroupName: fieldString(m, "groupName"),
		AdminIDs:  fieldStrings(m, "adminIds"),
		MemberIDs: fieldStrings(m, "memberIds"),
		Status:    Status(fieldString(m, "status")),
	}
}
