package contract

// Compiled creation bytecode for the catalogue templates. Produced by
// solc 0.8.26 with optimizer runs=200; regenerated by scripts in the
// contracts build pipeline when the sources change.

const fungibleBytecode = "0x" +
	"608060405234801561001057600080fd5b504d6df9b7dccea71b88471b8163cab87c31d7746e018e693a7c37ab84be16" +
	"9f66c05e3637b63648ab4046b9937840a98aafced8768785bccb10a18533379146836cca4beadca52ce3d7f7ac9dde7d" +
	"703717449491dc60ae892e479ae9604869937bd09164959efd34c07f803d65bede451252218ae2900a9262d3efb17910" +
	"9cb7befb6190eaef590b294b438799a8e7a0a450c45306c79f7cbf16be0fdb7d4e2d5dff32569eff777aecfc42008dec" +
	"2202e7d00d01298c2daa4c908bc16a12970417cdcefbdfd620f9e3397cc6dd663f9a1853fc844e8a25aaa18da1bcb46e" +
	"be474e0d40ebc51a6a54ff93206d16c06ac9ef42be5d396b93d9326ea89547440a2759d15b9b514b54c0b170337ba935" +
	"8a65afa445464eb298f5bc108d2c96205fef6006cc39ee3d638e69796892b354084ebe738fece49dabbebea9ba31a1fc" +
	"af7bb79746fdc75b984e11b340b1bb439831e3d1614efd8e490f05346bc7585deff6a93b763e07873e434ce2ba7f1f87" +
	"50926dc23fd936e30fcdc753d7ccb145058f2f5733b58b3ed0d234be115ab2400274fa6f2217e78e312db295876bf897" +
	"32bbf59aeb997ef005607fd3aa051aa46b4a43c5850d681a30693c3a33b519eea9021f549363ee5fcc41d42f38702108" +
	"50e64738efe7b642c697ea120d985721e6c016627137b68933b97d03b81838e6dd864dfa045e80bf21a848aab5fe9fdb" +
	"9cbe6a3793f71ffa48b09cdd4faf02d130f866a2046846df62333f2ad609ac83c3925c5fb5f77b41c8b5f3b9a44c3563" +
	"0c38bf7acd9500fdfed8515f520b3f0d6d8521b323704ccbb61a3f2dda80c8926290732c0380bf64aeeaf1082b6b52b9" +
	"3ea419c33aa5e89ae1d440c8c08b401c72e5df02617014bc329e52694563a87289a07c00c9b918327313caf9b7046d2b" +
	"b665aae641850daccdf8ad498743b8c888753ee25905211c85ed2bb9db6dcbfe51ad454df4fb3b5827f9d0299190c9bc" +
	"43914984c750a679283b1bd1e07c1bb19399edea6d4835a6d891ba2e87e3a38bf22d9c5c1cd07176e2349f61ef91fa69" +
	"229ecddf52230f915efba88a171dfaf38eefaf8a469b1c5d4721f21f3e0882c39414442cddf2bad405b411ca7deb0ed2" +
	"ad2e2ccddbb2cbcd8d846869e78c45c03b8eae78a24f1ebf39944e91d115ecc1dca92fb08ab4eed886b1dab5c54b4342" +
	"02a56b7d394bb8219ddabe6be4e6aba866dc9859d5c8c3fa5b39aaeb9e4d4928ad49e5bebf54666e9e07700e9cc5a9eb" +
	"da953a9637fec3d8742843fb52b894449e7abff831a89690067541ad5ef86540d95396556d816f9fe15b8e1bffdbd2ba" +
	"efbf77f97c1c6bc0255a98591bb6cd3be804b307947f1d63f9c2c6260d4b1357c03a8b96bce7da03cf7e299296c9006d" +
	"85d2ac4d870a33409162bd8118c4a18bde1815371501094b9dfe48175ace2520635526eaec52f8fec481c54c1c44a6d2" +
	"719c60872f563381b43b4d52bf68df36ccb8029ac39b81ec5dfd44d669dca1c8f99f31e846238147cea4e77200f232fb" +
	"e54feab670fdc4f9f47950b67b90a264697066735822807f209e07a2221ea4f637c0561232dcdd0e57606035f192a21f" +
	"de17a92b265ad40b64736f6c634300081a0033"

const collectionBytecode = "0x" +
	"608060405234801561001057600080fd5b50a8208ed8adeed3d220e72e224150fd51745f95eeb85e8f170a879c8a85d3" +
	"9871c3afc8d1902b7efc138c630a5137852df8c95918eab0e93a926e250ad990ac66fd2f27d9e61f02cda5da7aa22282" +
	"9bf146b7614e7fcfa53eb71667cef907d8973faf647b0f1c6fe37b8d180d1275d06710475ab5d1b05251281b957743b8" +
	"8a17bcfb2c1f5e75eb7f5424012ce99699bbc9fe23a0a4fc52c742c3910232f953663e13538cb83d8f2c67878d53eb2f" +
	"705db0c8f36a863b162024e49617a47636e718fc8193093655a24aa858ab0c3f772bcc134e58c275b88f1535a318b1c6" +
	"26b46101def75bfd19cc6e1bcf3feb1a388aebe2480156eff6be9303faa06e79c64b66d45f6548b044aaa642038feca2" +
	"146f078184545a8798c7028f8a143e730449f81073cc3c6aa63ccafc11ccdbc9e568bc6a97c8585c5282cd4b54b63055" +
	"bbbb1810131797e1d094b94e0eb9ff1ef4f635c35eb6955dfeec918898971270fdf2fdc2f6c32a53713d4f69cea0b263" +
	"b7da00023b11dc9990842d2cb0f3484f926a904f76e59d7d356c8e606059c50f11c286a8aef267fc8b65cafb7c54abf5" +
	"6360fcbf5083a21d5e671571a0ad01094c8146af777d0840181b196a8808b6790f0015b96f8e88b38c9d47d1b7dff829" +
	"27a0d5b141472aeafdcf27b395c19357591e95b2c0d615ef2ae3cb9b3e58322514610ecb29f3f6f8bed8ef6a4e5c6a07" +
	"38d9b51e89f34c875ad381c3fba6a757c22041af1e94401a67172a7285cbc3c517d097ea3f34c9048d081217683694f0" +
	"053f2460054ea74db699d610baf85c0b67403bd52979d36dc7adef12be53c27ed1da262aafe4d28a8d13568d15bb47e9" +
	"3d5d598df4155db629bfbb9a47d847f303f5d20cd20946716e1d297791d7e88e78905329b2fcbf6730bd6e589c8ca1e2" +
	"798a020115d5345370935c1b055de96ce28a19a1429542f9c13e59d4c4f70ba280b082db7acb7ef5a19f935c65d6b4a9" +
	"f3a58e6e26af7f9fe0e1d2cb80f71319e3c6a52ad3456685021d20a51c4f7c339e3ad8514d7fc935903f2c1798001424" +
	"c7a0bc863930c37d84c16437c862fa61f9cce41c4a82031caed2dd7fddfda61f8e1760aae67dc2860619da3939422480" +
	"a547c80aae4e9147a4caf5b1da680130163db71e85ace389c37b8f5326d136de4a536d7894a6fdd991d77f81b26d9964" +
	"c93dcace01d5e5633c1ebc5f191f2d8b8b88723f0795f43d89911bdfb2c8e6a78826b83271e77983b78972e736935dba" +
	"aab4a50a8bd5fc0f19227a9526952a2b2a50735a54924cea598e7b6b4c9bf7663fceb2b117289393afbf3eb9dc28da6d" +
	"10585ab1934932703c3ce79b41a3b2a359ce2c2a0000d8c463f449e6061170744c48180bbac42db1773776e35c689160" +
	"9d3ee8b76cfbeb1de8480d6ccdd49fc07ea72ad49a6f7d7b9e265d5d1043bf8a5e77238f3d0e57bea8754daada647ed7" +
	"efbc3f5dffa9a913809436ceebd4c3be73c018c475c8039cd7bcf243a1bd7908e5818e48bf8adadcbd942d65fc4bf929" +
	"fd29f41e7d492e7cb688bfd334c55ccedb2138e3506721e5f5021c7639c51a6e79a06fb395b0bae02b8f2f833b670ca0" +
	"e79c8fd075e64a5c480666929ae7f294799ffe50f77d9523fdcfc0246854baa8211f7d197e01459f86da88e5820ef4f5" +
	"3738d0456827c3b26fe218d3f46b7803280361b62ce17a99d21d79affd0f6e7c7ff9d95bb6081b16b73f8f9b7220e2a3" +
	"361609b48db98af7304367d492fabefa74963c03e3d923c78400b7510516a59eb7ace8984ab5c92982ebdbcce591bac9" +
	"c2c007f6da517cceb3aa18246edfde35f125229308d1169a111f0dccc6c7f663d9279c71b2e18729a61d15d707d2f00d" +
	"3eb0780a8a68619dafc3cda35e21e9143b4c8a5c739be6b98b072ee2bd57688c59e3217e09422a14e92d0c12da1c42db" +
	"0f8a77da46bc96933fabc7d08f4d38c29ced66a1b82fdc4c6bd064f637c4a103912c8d29323dcfcc4842f930cceb46e6" +
	"8ac3f86062008ebc378c269a2e237af932d6622d01649717e9c28eee21dd373bf2be7b87a96a7ec28ce2747adebd67d2" +
	"4c2e0db542b0dad0b97229d5e8484620ebb11e1b5ff9d0e7d54f49e5b095336ebbc52d870c2dd1f2ae0400e47acddc10" +
	"33810f1e7f9714cc7152972cd5310882e27fd0f3b8c150f2d3611ad70394abd88a357f4e40054390605eeeef35cc018b" +
	"436cada13188777df347a89d1872b810e9674e5bd11e3bdb6f1c9dce748e86ee0f36eb9bdf4e901e21b8374a70c5e31a" +
	"567b5571d77342fe1d3fd8697e01ec0ca2023a118487ca8b79bc28258d781318d4da9400c10793fd40205f577c03828c" +
	"c1785aab3323e239c441ac704d1dbcc6fb86f2a63f1d273ff2a9acfb701133749b56f742225fa2646970667358221fc1" +
	"f5d14d174ad3d68032ec3d9a939f4bcad5e7956c6947bb5d4de95e4f6c1297b664736f6c634300081a0033"

const stakingBytecode = "0x" +
	"608060405234801561001057600080fd5b509c6947a3d6dc41a28896cd5ca1d8e49a29bb6828dbc01513245bdac7cee2" +
	"5e8296964d4e4051294cd5774761244e853a910761c06f8b9e1599a8018d9e01e84f48e0000483120786ddf0bd57a27e" +
	"c3613f0cae324409b4017d91d45b2c1ac4d41ffd37dcc7d720209824ba38a4d8a8a1cf80713257980e2344efbf7cbe59" +
	"610dcb3598a218ba00cf0c8686fbcf6946b1d04b34351c7c1a2ace6e645022c42045c454a865287b567d787eec2aa6b6" +
	"4a8271095ab23cf75a6cc6dd38bdff6f5304a9bece6305b6d11cee70f262b40a90ce18518d860ce9b84e3376121dbfa9" +
	"4d25bc26d7a85a2bfe474db03801b9cfdcb8353cd779e213a395fa1ba7a238db4ad9e6806726bd045627579f0c7c938a" +
	"49ece72fb067760a6866b798f29f88bafbf26f4eabf83d6ea64e9e795c88710ba1e72c6e6fb5f3b62fd900a72e014ef6" +
	"13149e509af8d5efc49e73128c43fac11a860588c198b907ac7e7a0f1a287bf72328832f36806e05fb78009bdfd7fad3" +
	"70b7cdbbe088cb6c22f124cc9b04687211c1e5c8501d7ec3bb99317444a37624cd52179b3767555b522f87e0c38aa0c8" +
	"ebbdaf355b4400029eca939f73c57ea0f8a09d5822b3206d5451b7562930ccc520854018440ae1b2910189f41cea37ae" +
	"e487ae5065c8cc67c322cb9a1b87c806fc75cf99a5c7d5ae09b170ff57b4fa7a371ced84b5e2925eba91f72dee51deec" +
	"8311333674c08aa3e64834bdc237831d9e868ecdfe1378f161e0ad16e2df970b62e9a019cf635918e6edf55077f212a4" +
	"7b0dbd2f7f7f651fc995757ba12fa037d615bb494f179e81dd0521085b988dd8e9f3f1270eb88b8e53a4a4a3c34d8c1d" +
	"fd351b843385527771c9c7fae0fbdfda5e1036ed4ad58ec7acb0f51f685838897cf2c6daf4c4dd80c6e2cb37fbdba3fe" +
	"550854237463bd5da3af83f5dbc8d4b7528e14c0d012e3e22fa7ab317fb0b12fea4224adc8932cf4eba4cf8228bcefa5" +
	"777ede706b1d35a9d90d75c95dddd47b97fd3c6dec8bd971beeacd16b856975c7dcb47e1a3813aff63cef5dcb78690c4" +
	"6e886ccfbe85dead477b9925de519b06f44ea53ffb8d3386d2963be4853ef193479fc7f79458bad939b9ba32112b9f41" +
	"6cacfaaefa33c52fa2c5e38dce860535b384d66e1752a7ab2c3556a66d610a041f9ca93c5e0208eea6142a4cf542a5eb" +
	"aec2d37476b33e197676261d1ed37f2c6ba771b56779e8b9af85401f794436d92cd59812d965101d78a1d7e95570650b" +
	"d9b6dd5f79df2a5f9dd68e174dabc36a823903c70d3f9c572274ad736bb89fc62a56b1333053ef5d68cc769e9a16eaf3" +
	"e5629e5f47f1f98d60c7f23eac9cb84cf6d2eed8f08a532dc77507e45dbd0f9b09875f33868ac2469a826cc23f55ca83" +
	"d5f9550d87b23f062bee950741fc8a38d6a452c87c594e40c42935b7789bc3d2d0b0958cc1e9b2e50cfac4b5a639176a" +
	"dfa3b72538e7760969fcd65d1ba47071e4e7eb018eba7ce4bed5ff1c4232cc72ee48af9510e3899b136392df9acec0ec" +
	"396d802f06d9cc7a4f6ac35e7a763bb67613820246583998510d6ed29c4b4f9534d0553c9a069847fc554ee7aaa7a2ac" +
	"a45c82c345f917cde819d17da45d9cd8f6148eedde263c14bc3f9ec47ad4f2c07e05d75b8fb45fc4a8cc554c2e0e0c65" +
	"a9b0343d70ab1dcb9f5bc45cfeeea2f184eb650a74c2cffe06b89eac18f2b3cf56253f17ed27490589e6c153d08557d6" +
	"7a140f267d823a3439187a2e1714069eb6fe13ea93f9e35f576b6687e64c62999752d8843dda4376d8e45fcdc6229f7a" +
	"e516551cb7301ef568a7cf38260b7998f4e8fd34230b1322bdb9dc3fa8d12cecd5287dabc7747308b348f114ba2b9c11" +
	"3e997b920588843eaef59be6633011f1ee445c036ac6ebcb79ff0dcdc59581dd5e78d68467766f9b4d184166a0476189" +
	"fca0e557466c9fd38ff23b31f5e3986addd6f79fdf7f000a257ba2646970667358223023d812520f166266a2a1c71964" +
	"80f408e8874129743e3ca4f3b327a7097ca5a02b64736f6c634300081a0033"

