package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"research_portal_api/app"
	"research_portal_api/controllers"
	"research_portal_api/db"
	"research_portal_api/models"
	"research_portal_api/services"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	repo := db.NewRepo(a.DB)

	// 复用的中间件
	authMW := app.AuthRequired(a.Verifier)
	seenMW := app.TouchLastSeen(repo, a.RDB, a.Config.LastSeenThrottle, a.Log)

	r.GET("/healthz", func(c *app.Ctx) {
		sqlDB, err := a.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, app.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, app.H{"ok": true})
	})

	api := r.Group("/api", authMW, seenMW)
	Mount(api, s)
	mountPublications(api.Group("/publications"), a.DB, s)
}

// Mount registers the user, inventory, loan and storage routes on api.
// Permission checks happen in the services and controllers.
func Mount(api *gin.RouterGroup, s *controllers.Srv) {
	uc := controllers.NewUserController(s)
	itemCtl := controllers.NewItemController(s)
	loanCtl := controllers.NewLoanController(s)
	storeCtl := controllers.NewStorageController(s)

	// ------------------------------
	// 用户
	// ------------------------------
	users := api.Group("/users")
	{
		users.GET("/me", uc.Me)
		users.GET("", uc.ListUsers) // ?q=&page=&size=
		users.GET("/:uid", uc.GetUser)
		users.DELETE("/:uid", uc.DeleteUser)
	}

	// ------------------------------
	// 库存
	// ------------------------------
	items := api.Group("/items")
	{
		items.POST("", itemCtl.Provision)
		items.GET("", itemCtl.ListItems) // ?q=&status=&page=&size=
		items.GET("/:id", itemCtl.GetItem)
		items.PATCH("/:id", itemCtl.UpdateItem)
		items.DELETE("/:id/image", itemCtl.DeleteImage)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	loans := api.Group("/loans")
	{
		loans.POST("", loanCtl.Issue)
		loans.GET("", loanCtl.ListLoans) // ?status=&itemId=&cedula=
		loans.GET("/:id", loanCtl.GetLoan)
		loans.POST("/:id/return", loanCtl.Return)
	}

	objects := api.Group("/storage")
	{
		objects.POST("/presign", storeCtl.Presign)
		objects.GET("/objects", storeCtl.ListObjects) // ?prefix=
	}
}

func mountPublications(g *gin.RouterGroup, conn *gorm.DB, s *controllers.Srv) {
	mountType[models.Book](g, "books", conn, s)
	mountType[models.BookChapter](g, "book-chapters", conn, s)
	mountType[models.JournalArticle](g, "articles", conn, s)
	mountType[models.ConferencePaper](g, "conference-papers", conn, s)
	mountType[models.Course](g, "courses", conn, s)
	mountType[models.Event](g, "events", conn, s)
	mountType[models.Software](g, "software", conn, s)
	mountType[models.Thesis](g, "theses", conn, s)
	mountType[models.Project](g, "projects", conn, s)
	mountType[models.Patent](g, "patents", conn, s)
	mountType[models.Award](g, "awards", conn, s)
	mountType[models.Talk](g, "talks", conn, s)
	mountType[models.Dataset](g, "datasets", conn, s)
	mountType[models.TechnicalReport](g, "technical-reports", conn, s)
	mountType[models.Workshop](g, "workshops", conn, s)
}

func mountType[T any, P interface {
	*T
	models.Record
}](g *gin.RouterGroup, kind string, conn *gorm.DB, s *controllers.Srv) {
	svc := services.NewPublicationService[T, P](kind, db.NewPublicationRepo[T](conn), s.Objects, s.Log)
	controllers.MountPublication(g.Group("/"+kind), svc, s.Log)
}
